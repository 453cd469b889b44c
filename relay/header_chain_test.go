package relay

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/log"
)

// makeChain builds count headers on top of parent. Each header gets a
// distinct transactions root derived from salt and its number.
func makeChain(parent *types.Header, count int, difficulty int64, salt byte) []*types.Header {
	var out []*types.Header
	for i := 0; i < count; i++ {
		num := new(big.Int).Add(parent.Number, big.NewInt(1))
		h := &types.Header{
			ParentHash:  parent.Hash(),
			Number:      num,
			Difficulty:  big.NewInt(difficulty),
			TxHash:      types.BytesToHash([]byte{salt, byte(num.Uint64()), 1}),
			ReceiptHash: types.BytesToHash([]byte{salt, byte(num.Uint64()), 2}),
			Extra:       []byte{salt},
		}
		out = append(out, h)
		parent = h
	}
	return out
}

func newTestChain(t *testing.T) (*HeaderChain, *types.Header) {
	t.Helper()
	hc := NewHeaderChain(log.Discard())
	anchor := &types.Header{Number: big.NewInt(100), Difficulty: big.NewInt(1)}
	if err := hc.InsertHeader(anchor); err != nil {
		t.Fatal(err)
	}
	return hc, anchor
}

func TestHeaderChainInsert(t *testing.T) {
	hc, anchor := newTestChain(t)
	headers := makeChain(anchor, 5, 2, 0xa)
	if n, err := hc.InsertChain(headers); err != nil || n != 5 {
		t.Fatalf("inserted %d: %v", n, err)
	}
	if hc.Head().Hash() != headers[4].Hash() {
		t.Fatal("head not updated")
	}
	if hc.GetHeaderByNumber(103).Hash() != headers[2].Hash() {
		t.Fatal("canonical index wrong")
	}
	if hc.Len() != 6 {
		t.Fatalf("len %d", hc.Len())
	}
	if td := hc.TotalDifficulty(headers[4].Hash()); td.Int64() != 11 {
		t.Fatalf("td %v, want 11", td)
	}

	if err := hc.InsertHeader(headers[0]); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate: %v", err)
	}
	orphan := &types.Header{ParentHash: types.HexToHash("0x99"), Number: big.NewInt(106)}
	if err := hc.InsertHeader(orphan); !errors.Is(err, ErrUnknownParent) {
		t.Fatalf("orphan: %v", err)
	}
	gap := &types.Header{ParentHash: headers[4].Hash(), Number: big.NewInt(107)}
	if err := hc.InsertHeader(gap); !errors.Is(err, ErrBadNumber) {
		t.Fatalf("gap: %v", err)
	}
	if err := hc.InsertHeader(nil); !errors.Is(err, ErrNilHeader) {
		t.Fatalf("nil: %v", err)
	}
}

func TestHeaderChainConfirmations(t *testing.T) {
	ctx := context.Background()
	hc, anchor := newTestChain(t)
	headers := makeChain(anchor, 4, 1, 0xa)
	hc.InsertChain(headers)

	target := headers[1] // number 102, head 104
	tests := []struct {
		confirmations uint64
		want          bool
	}{
		{0, true},
		{2, true},
		{3, false},
	}
	for _, tt := range tests {
		if got := hc.ValidateHeader(ctx, target.Hash(), tt.confirmations); got != tt.want {
			t.Errorf("confirmations %d: got %v, want %v", tt.confirmations, got, tt.want)
		}
	}
	if hc.ValidateHeader(ctx, types.HexToHash("0x1234"), 0) {
		t.Fatal("unknown header validated")
	}
	if !hc.ValidateRoot(ctx, target.TxHash, TransactionsRoot) || !hc.ValidateRoot(ctx, target.ReceiptHash, ReceiptsRoot) {
		t.Fatal("canonical roots rejected")
	}
	if hc.ValidateRoot(ctx, target.TxHash, ReceiptsRoot) {
		t.Fatal("transactions root accepted as receipts root")
	}
}

func TestHeaderChainReorg(t *testing.T) {
	ctx := context.Background()
	hc, anchor := newTestChain(t)
	main := makeChain(anchor, 3, 1, 0xa)
	hc.InsertChain(main)

	// A heavier fork from the anchor replaces the main chain.
	fork := makeChain(anchor, 2, 5, 0xb)
	if _, err := hc.InsertChain(fork); err != nil {
		t.Fatal(err)
	}
	if hc.Head().Hash() != fork[1].Hash() {
		t.Fatal("heavier fork did not become head")
	}
	if hc.GetHeaderByNumber(103) != nil {
		t.Fatal("stale canonical entry above new head")
	}
	if hc.ValidateHeader(ctx, main[0].Hash(), 0) {
		t.Fatal("reorged-out header still valid")
	}
	if hc.ValidateRoot(ctx, main[0].TxHash, TransactionsRoot) {
		t.Fatal("reorged-out root still valid")
	}
	if !hc.ValidateHeader(ctx, fork[0].Hash(), 1) {
		t.Fatal("fork header rejected")
	}

	// Equal total difficulty does not displace the head.
	tie := makeChain(anchor, 2, 5, 0xc)
	hc.InsertChain(tie)
	if hc.Head().Hash() != fork[1].Hash() {
		t.Fatal("tie replaced the first-seen head")
	}
}

func TestMockRelay(t *testing.T) {
	ctx := context.Background()
	m := NewMockRelay()
	if !m.ValidateHeader(ctx, types.Hash{}, 10) || !m.ValidateRoot(ctx, types.Hash{}, TransactionsRoot) {
		t.Fatal("mock should accept by default")
	}
	m.SetTxVerificationResult(false)
	if m.ValidateRoot(ctx, types.Hash{}, TransactionsRoot) || !m.ValidateRoot(ctx, types.Hash{}, ReceiptsRoot) {
		t.Fatal("tx verdict not applied independently")
	}
	m.SetReceiptVerificationResult(false)
	m.SetHeaderVerificationResult(false)
	if m.ValidateRoot(ctx, types.Hash{}, ReceiptsRoot) || m.ValidateHeader(ctx, types.Hash{}, 0) {
		t.Fatal("verdicts not applied")
	}
	if m.HeaderQueries() != 2 {
		t.Fatalf("header queries %d", m.HeaderQueries())
	}
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory()
	addr := types.HexToAddress("0x01")
	if _, ok := d.Oracle(addr); ok {
		t.Fatal("empty directory resolved an address")
	}
	m := NewMockRelay()
	d.Add(addr, m)
	if o, ok := d.Oracle(addr); !ok || o != Oracle(m) {
		t.Fatal("registered oracle not returned")
	}
}
