// Package rawdb is the key-value persistence layer of the registries. Each
// record kind lives under its own single-byte prefix, scoped by the address
// of the registry that owns it, so several registries can share one store.
package rawdb

import "errors"

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("rawdb: not found")

// KeyValueReader reads single keys.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter writes single keys. Deleting a missing key is not an error.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterator walks the pairs under a prefix in ascending key order. Key and
// Value are only valid after Next returned true.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Batch buffers writes until Write applies all of them at once.
type Batch interface {
	KeyValueWriter
	ValueSize() int // bytes queued so far
	Write() error
	Reset()
}

// Database is the store registries keep their state in. MemoryDB and
// LevelDB implement it.
type Database interface {
	KeyValueReader
	KeyValueWriter
	NewBatch() Batch
	NewIterator(prefix []byte) Iterator
	Close() error
}

var (
	_ Database = (*MemoryDB)(nil)
	_ Database = (*LevelDB)(nil)
)
