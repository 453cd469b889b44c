// Package relay is the client side of the header-validity oracle. The
// registries never judge chain validity themselves: they ask an Oracle
// whether a header is canonical with enough confirmations and whether a
// transaction or receipt root belongs to such a header.
package relay

import (
	"context"
	"sync"

	"github.com/eth2030/xcall/core/types"
)

// RootKind selects which header root a ValidateRoot query refers to.
type RootKind uint8

const (
	TransactionsRoot RootKind = iota
	ReceiptsRoot
)

func (k RootKind) String() string {
	switch k {
	case TransactionsRoot:
		return "transactions"
	case ReceiptsRoot:
		return "receipts"
	default:
		return "unknown"
	}
}

// Oracle answers header validity queries. Implementations must be
// read-only from the caller's point of view and must not require proof
// replay.
type Oracle interface {
	// ValidateHeader reports whether the header with the given hash is on
	// the canonical chain with at least confirmations blocks on top of it.
	ValidateHeader(ctx context.Context, hash types.Hash, confirmations uint64) bool

	// ValidateRoot reports whether root is the transactions or receipts
	// root of a canonical header.
	ValidateRoot(ctx context.Context, root types.Hash, kind RootKind) bool
}

// Directory resolves the relay address stored in a proxy registration to
// the oracle it designates.
type Directory interface {
	Oracle(addr types.Address) (Oracle, bool)
}

// StaticDirectory is a Directory backed by a fixed set of oracles.
type StaticDirectory struct {
	mu      sync.RWMutex
	oracles map[types.Address]Oracle
}

// NewStaticDirectory creates an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{oracles: make(map[types.Address]Oracle)}
}

// Add registers o under addr, replacing any previous entry.
func (d *StaticDirectory) Add(addr types.Address, o Oracle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.oracles[addr] = o
}

// Oracle implements Directory.
func (d *StaticDirectory) Oracle(addr types.Address) (Oracle, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.oracles[addr]
	return o, ok
}
