package rawdb

import (
	"bytes"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemoryDB is a Database held in a map, used by tests and the simulator.
// Values are copied on the way in and out.
type MemoryDB struct {
	lock    sync.RWMutex
	entries map[string][]byte
}

// NewMemoryDB creates an empty in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{entries: make(map[string][]byte)}
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.lock.RLock()
	_, found := db.entries[string(key)]
	db.lock.RUnlock()
	return found, nil
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if v, found := db.entries[string(key)]; found {
		return bytes.Clone(v), nil
	}
	return nil, ErrNotFound
}

func (db *MemoryDB) Put(key, value []byte) error {
	db.lock.Lock()
	db.entries[string(key)] = cloneValue(value)
	db.lock.Unlock()
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	db.lock.Lock()
	delete(db.entries, string(key))
	db.lock.Unlock()
	return nil
}

func (db *MemoryDB) Close() error { return nil }

// Len returns the number of stored keys.
func (db *MemoryDB) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return len(db.entries)
}

func (db *MemoryDB) NewBatch() Batch { return &memoryBatch{db: db} }

// NewIterator iterates over a snapshot of the keys under prefix taken at
// the time of the call.
func (db *MemoryDB) NewIterator(prefix []byte) Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	it := &memoryIterator{index: -1}
	for _, k := range slices.Sorted(maps.Keys(db.entries)) {
		if strings.HasPrefix(k, string(prefix)) {
			it.keys = append(it.keys, []byte(k))
			it.values = append(it.values, bytes.Clone(db.entries[k]))
		}
	}
	return it
}

// cloneValue copies v, keeping empty values non-nil so Has and Get agree.
func cloneValue(v []byte) []byte {
	return append(make([]byte, 0, len(v)), v...)
}

// memoryBatch queues writes and applies them under one lock.
type memoryBatch struct {
	db      *MemoryDB
	writes  []pendingWrite
	written int
}

type pendingWrite struct {
	key   string
	value []byte // nil deletes key
}

func (b *memoryBatch) Put(key, value []byte) error {
	b.writes = append(b.writes, pendingWrite{key: string(key), value: cloneValue(value)})
	b.written += len(key) + len(value)
	return nil
}

func (b *memoryBatch) Delete(key []byte) error {
	b.writes = append(b.writes, pendingWrite{key: string(key)})
	b.written += len(key)
	return nil
}

func (b *memoryBatch) ValueSize() int { return b.written }

func (b *memoryBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	for _, w := range b.writes {
		if w.value == nil {
			delete(b.db.entries, w.key)
			continue
		}
		b.db.entries[w.key] = w.value
	}
	return nil
}

func (b *memoryBatch) Reset() {
	b.writes = b.writes[:0]
	b.written = 0
}

type memoryIterator struct {
	keys, values [][]byte
	index        int
}

func (it *memoryIterator) Next() bool {
	if it.index < len(it.keys) {
		it.index++
	}
	return it.index < len(it.keys)
}

func (it *memoryIterator) valid() bool { return it.index >= 0 && it.index < len(it.keys) }

func (it *memoryIterator) Key() []byte {
	if !it.valid() {
		return nil
	}
	return it.keys[it.index]
}

func (it *memoryIterator) Value() []byte {
	if !it.valid() {
		return nil
	}
	return it.values[it.index]
}

func (it *memoryIterator) Release() { it.keys, it.values = nil, nil }
