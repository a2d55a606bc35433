package confloader

import "errors"

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

// mapProvider loads configuration from a nested or dotted-key map.
type mapProvider map[string]any

// ReadBytes returns an error as map provider doesn't support byte serialization.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the configuration map with dotted keys expanded.
func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		setPath(out, k, v)
	}
	return out, nil
}

func setPath(dst map[string]any, key string, v any) {
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			continue
		}
		sub, ok := dst[key[:i]].(map[string]any)
		if !ok {
			sub = map[string]any{}
			dst[key[:i]] = sub
		}
		setPath(sub, key[i+1:], v)
		return
	}
	if nested, ok := v.(map[string]any); ok {
		sub, ok := dst[key].(map[string]any)
		if !ok {
			sub = map[string]any{}
			dst[key] = sub
		}
		for k, nv := range nested {
			setPath(sub, k, nv)
		}
		return
	}
	dst[key] = v
}
