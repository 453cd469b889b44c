package relay

import (
	"context"
	"sync"

	"github.com/eth2030/xcall/core/types"
)

// MockRelay is an Oracle whose verdicts are set directly. All checks pass
// until told otherwise.
type MockRelay struct {
	mu          sync.Mutex
	headerOK    bool
	txRootOK    bool
	receiptOK   bool
	headerCalls int
}

// NewMockRelay returns a relay that accepts everything.
func NewMockRelay() *MockRelay {
	return &MockRelay{headerOK: true, txRootOK: true, receiptOK: true}
}

// SetHeaderVerificationResult sets the verdict of ValidateHeader.
func (m *MockRelay) SetHeaderVerificationResult(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headerOK = ok
}

// SetTxVerificationResult sets the verdict of transactions-root queries.
func (m *MockRelay) SetTxVerificationResult(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txRootOK = ok
}

// SetReceiptVerificationResult sets the verdict of receipts-root queries.
func (m *MockRelay) SetReceiptVerificationResult(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptOK = ok
}

// HeaderQueries returns how many times ValidateHeader was called.
func (m *MockRelay) HeaderQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headerCalls
}

// ValidateHeader implements Oracle.
func (m *MockRelay) ValidateHeader(_ context.Context, _ types.Hash, _ uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headerCalls++
	return m.headerOK
}

// ValidateRoot implements Oracle.
func (m *MockRelay) ValidateRoot(_ context.Context, _ types.Hash, kind RootKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == TransactionsRoot {
		return m.txRootOK
	}
	return m.receiptOK
}
