package domain

import (
	"strings"
	"unicode"
)

// FqName is a fully-qualified dotted symbol name such as "kotlin.collections.List".
//
// The empty FqName denotes the root package.
type FqName string

// RootName is the root package.
const RootName FqName = ""

// ParseFqName validates s and returns it as an FqName.
//
// Segments must be non-empty and must not contain whitespace. The empty
// string parses to RootName.
func ParseFqName(s string) (FqName, error) {
	if s == "" {
		return RootName, nil
	}
	for i, seg := range strings.Split(s, ".") {
		if seg == "" {
			return "", ErrInvalidName.WithDetailsf("%q: empty segment at %d", s, i)
		}
		if strings.IndexFunc(seg, unicode.IsSpace) >= 0 {
			return "", ErrInvalidName.WithDetailsf("%q: whitespace in segment %q", s, seg)
		}
	}
	return FqName(s), nil
}

// MustParseFqName is like ParseFqName but panics on error.
func MustParseFqName(s string) FqName {
	n, err := ParseFqName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the dotted form.
func (n FqName) String() string {
	return string(n)
}

// IsRoot reports whether n is the root package.
func (n FqName) IsRoot() bool {
	return n == RootName
}

// Segments returns the dot-separated parts of n. The root has no segments.
func (n FqName) Segments() []string {
	if n.IsRoot() {
		return nil
	}
	return strings.Split(string(n), ".")
}

// ShortName returns the last segment.
func (n FqName) ShortName() string {
	if i := strings.LastIndexByte(string(n), '.'); i >= 0 {
		return string(n[i+1:])
	}
	return string(n)
}

// Parent returns n without its last segment. The parent of a single-segment
// name, and of the root, is the root.
func (n FqName) Parent() FqName {
	if i := strings.LastIndexByte(string(n), '.'); i >= 0 {
		return n[:i]
	}
	return RootName
}

// Child appends a segment to n.
func (n FqName) Child(segment string) FqName {
	if n.IsRoot() {
		return FqName(segment)
	}
	return n + "." + FqName(segment)
}
