package xcall

import (
	"context"
	"fmt"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/metrics"
	"github.com/eth2030/xcall/relay"
	"github.com/eth2030/xcall/trie"
)

// Inclusion is a transaction and receipt proven to be part of a canonical
// source-chain block.
type Inclusion struct {
	Header     *types.Header
	HeaderHash types.Hash
	Tx         *types.Transaction
	Receipt    *types.Receipt
}

// Verifier checks proofs against one oracle.
type Verifier struct {
	Oracle        relay.Oracle
	Confirmations uint64
}

// Verify authenticates p: the header must be canonical with enough
// confirmations, and the transaction and receipt must be members of the
// header's transactions and receipts tries under p.Path, with both roots
// vouched for by the oracle. Codec failures wrap ErrCodec; every other
// failure wraps ErrNonExistentCallExecution.
func (v Verifier) Verify(ctx context.Context, p *Proof) (*Inclusion, error) {
	timer := metrics.NewTimer(metrics.ProofVerifyTime)
	defer timer.Stop()

	header, err := types.DecodeHeader(p.Header)
	if err != nil {
		return nil, err
	}
	hash := header.Hash()
	if !v.Oracle.ValidateHeader(ctx, hash, v.Confirmations) {
		return nil, fmt.Errorf("%w: header %s not accepted by relay", ErrNonExistentCallExecution, hash)
	}

	if res := trie.VerifyValue(header.TxHash, p.Path, p.TxNodes, p.Tx); !res.Included() {
		return nil, fmt.Errorf("%w: transaction: %w", ErrNonExistentCallExecution, res.Err())
	}
	if !v.Oracle.ValidateRoot(ctx, header.TxHash, relay.TransactionsRoot) {
		return nil, fmt.Errorf("%w: transactions root %s not accepted by relay", ErrNonExistentCallExecution, header.TxHash)
	}
	if res := trie.VerifyValue(header.ReceiptHash, p.Path, p.ReceiptNodes, p.Receipt); !res.Included() {
		return nil, fmt.Errorf("%w: receipt: %w", ErrNonExistentCallExecution, res.Err())
	}
	if !v.Oracle.ValidateRoot(ctx, header.ReceiptHash, relay.ReceiptsRoot) {
		return nil, fmt.Errorf("%w: receipts root %s not accepted by relay", ErrNonExistentCallExecution, header.ReceiptHash)
	}

	tx, err := types.DecodeTransaction(p.Tx)
	if err != nil {
		return nil, err
	}
	receipt, err := types.DecodeReceipt(p.Receipt)
	if err != nil {
		return nil, err
	}
	return &Inclusion{Header: header, HeaderHash: hash, Tx: tx, Receipt: receipt}, nil
}
