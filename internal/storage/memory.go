package storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/tidwall/btree"
)

// MemoryEngine implements KVEngine on an in-process ordered B-tree.
// Contents are lost on Close.
type MemoryEngine struct {
	mu     sync.RWMutex
	tree   *btree.Map[string, []byte]
	closed bool
}

// NewMemoryEngine creates an empty memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{tree: btree.NewMap[string, []byte](0)}
}

// Get retrieves a value by key.
func (e *MemoryEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, ErrClosed
	}
	v, ok := e.tree.Get(string(key))
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a key-value pair.
func (e *MemoryEngine) Set(ctx context.Context, key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.tree.Set(string(key), bytes.Clone(value))
	return nil
}

// Delete removes a key.
func (e *MemoryEngine) Delete(ctx context.Context, key []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.tree.Delete(string(key))
	return nil
}

// Scan iterates over keys with a given prefix.
//
// The callback runs under the read lock and must not call back into the
// engine's write methods.
func (e *MemoryEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrClosed
	}
	p := string(prefix)
	e.tree.Ascend(p, func(k string, v []byte) bool {
		if len(k) < len(p) || k[:len(p)] != p {
			return false
		}
		return fn([]byte(k), bytes.Clone(v))
	})
	return nil
}

// Stats returns storage statistics.
func (e *MemoryEngine) Stats(ctx context.Context) (*KVStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, ErrClosed
	}
	var size uint64
	e.tree.Scan(func(k string, v []byte) bool {
		size += uint64(len(k) + len(v))
		return true
	})
	return &KVStats{
		Engine:    EngineMemory,
		TotalKeys: uint64(e.tree.Len()),
		TotalSize: size,
	}, nil
}

// Close discards all contents.
func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.tree.Clear()
	return nil
}
