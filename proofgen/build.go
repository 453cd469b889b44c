// Package proofgen assembles cross-chain proofs from source-chain blocks,
// either from block data already at hand or from a JSON-RPC node.
package proofgen

import (
	"errors"
	"fmt"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/rlp"
)

var (
	ErrIndexOutOfRange = errors.New("proofgen: transaction index out of range")
	ErrLengthMismatch  = errors.New("proofgen: transaction and receipt counts differ")
	ErrRootMismatch    = errors.New("proofgen: derived root does not match header")
)

// Build returns the proof of txs[index] and receipts[index] in the block
// with header. The block bodies must hash to the header's roots.
func Build(header *types.Header, txs []*types.Transaction, receipts []*types.Receipt, index uint64) (*xcall.Proof, error) {
	if len(txs) != len(receipts) {
		return nil, fmt.Errorf("%w: %d txs, %d receipts", ErrLengthMismatch, len(txs), len(receipts))
	}
	if index >= uint64(len(txs)) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(txs))
	}
	txEnc := make([][]byte, len(txs))
	for i, tx := range txs {
		txEnc[i] = tx.EncodeRLP()
	}
	rcEnc := make([][]byte, len(receipts))
	for i, r := range receipts {
		rcEnc[i] = r.EncodeRLP()
	}

	txNodes, err := proveIndex(txEnc, index, header.TxHash, "transactions")
	if err != nil {
		return nil, err
	}
	rcNodes, err := proveIndex(rcEnc, index, header.ReceiptHash, "receipts")
	if err != nil {
		return nil, err
	}
	return &xcall.Proof{
		Header:       header.EncodeRLP(),
		Tx:           txEnc[index],
		Receipt:      rcEnc[index],
		Path:         rlp.EncodeUint64(index),
		TxNodes:      txNodes,
		ReceiptNodes: rcNodes,
	}, nil
}

func proveIndex(values [][]byte, index uint64, root types.Hash, what string) ([][]byte, error) {
	tr, err := geth.NewIndexTrie(values)
	if err != nil {
		return nil, err
	}
	if got := tr.Root(); got != root {
		return nil, fmt.Errorf("%w: %s root %s, header has %s", ErrRootMismatch, what, got, root)
	}
	return tr.ProveIndex(index)
}

// DeriveHeader returns a copy of template committing to txs and receipts:
// transactions and receipts roots, logs bloom and gas used.
func DeriveHeader(template *types.Header, txs []*types.Transaction, receipts []*types.Receipt) (*types.Header, error) {
	if len(txs) != len(receipts) {
		return nil, fmt.Errorf("%w: %d txs, %d receipts", ErrLengthMismatch, len(txs), len(receipts))
	}
	txEnc := make([][]byte, len(txs))
	for i, tx := range txs {
		txEnc[i] = tx.EncodeRLP()
	}
	rcEnc := make([][]byte, len(receipts))
	for i, r := range receipts {
		rcEnc[i] = r.EncodeRLP()
	}
	txRoot, err := geth.DeriveRoot(txEnc)
	if err != nil {
		return nil, err
	}
	rcRoot, err := geth.DeriveRoot(rcEnc)
	if err != nil {
		return nil, err
	}
	h := *template
	h.TxHash = txRoot
	h.ReceiptHash = rcRoot
	h.Bloom = types.CreateBloom(receipts)
	h.GasUsed = 0
	if n := len(receipts); n > 0 {
		h.GasUsed = receipts[n-1].CumulativeGasUsed
	}
	return &h, nil
}
