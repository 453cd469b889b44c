package proxy

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/proofgen"
)

// blockProof seals a one-transaction block holding a call to `to` whose
// receipt carries logs, and returns the encoded proof of that transaction.
func blockProof(t *testing.T, to types.Address, logs []*types.Log, status uint64) []byte {
	t.Helper()
	acct, err := geth.GenerateAccount()
	if err != nil {
		t.Fatal(err)
	}
	tx, err := acct.SignCall(big.NewInt(2), 0, to, []byte{0x01}, 500_000)
	if err != nil {
		t.Fatal(err)
	}
	receipt := types.NewReceipt(status, 90_000, logs)
	receipt.Type = tx.Type
	txs, receipts := []*types.Transaction{tx}, []*types.Receipt{receipt}

	header, err := proofgen.DeriveHeader(&types.Header{
		UncleHash:  types.EmptyUncleHash,
		Root:       types.EmptyRootHash,
		Difficulty: big.NewInt(1),
		Number:     big.NewInt(42),
		GasLimit:   30_000_000,
		Time:       504,
	}, txs, receipts)
	if err != nil {
		t.Fatal(err)
	}
	p, err := proofgen.Build(header, txs, receipts, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p.Encode()
}

type invocation struct {
	from, to types.Address
	input    []byte
	gas      uint64
}

// recordingInvoker records outbound calls and answers with ok.
type recordingInvoker struct {
	mu    sync.Mutex
	ok    bool
	calls []invocation
}

func (r *recordingInvoker) Invoke(_ context.Context, from, to types.Address, input []byte, gas uint64) (bool, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, invocation{from, to, input, gas})
	return r.ok, nil
}
