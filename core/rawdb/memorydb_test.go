package rawdb

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryDBBasic(t *testing.T) {
	db := NewMemoryDB()
	if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	ok, _ := db.Has([]byte("k"))
	if !ok {
		t.Fatal("key missing after Put")
	}
	val, err := db.Get([]byte("k"))
	if err != nil || string(val) != "v" {
		t.Fatalf("Get = %q, %v", val, err)
	}
	// Returned values are copies.
	val[0] = 'x'
	if again, _ := db.Get([]byte("k")); string(again) != "v" {
		t.Fatal("stored value was mutated through Get result")
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatal(err)
	}
	if db.Len() != 0 {
		t.Fatalf("Len = %d after delete", db.Len())
	}
	if err := db.Delete([]byte("missing")); err != nil {
		t.Fatalf("deleting a missing key: %v", err)
	}
}

func TestMemoryDBBatch(t *testing.T) {
	db := NewMemoryDB()
	db.Put([]byte("gone"), []byte("1"))

	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("gone"))
	if b.ValueSize() == 0 {
		t.Fatal("ValueSize not tracked")
	}
	if ok, _ := db.Has([]byte("a")); ok {
		t.Fatal("batch visible before Write")
	}
	if err := b.Write(); err != nil {
		t.Fatal(err)
	}
	if db.Len() != 2 {
		t.Fatalf("Len = %d, want 2", db.Len())
	}
	b.Reset()
	if b.ValueSize() != 0 {
		t.Fatal("Reset did not clear size")
	}
}

func TestMemoryDBIterator(t *testing.T) {
	db := NewMemoryDB()
	for _, k := range []string{"p3", "p1", "q1", "p2"} {
		db.Put([]byte(k), []byte(k))
	}
	it := db.NewIterator([]byte("p"))
	defer it.Release()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, it.Key())
		if !bytes.Equal(it.Key(), it.Value()) {
			t.Fatalf("value mismatch at %q", it.Key())
		}
	}
	want := [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if !bytes.Equal(keys[i], want[i]) {
			t.Fatalf("key %d = %q, want %q", i, keys[i], want[i])
		}
	}
}
