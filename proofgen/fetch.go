package proofgen

import (
	"context"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/log"
)

const tracerName = "github.com/eth2030/xcall/proofgen"

// ChainReader is the subset of ethclient.Client used by Fetcher.
type ChainReader interface {
	TransactionReceipt(ctx context.Context, txHash gethcommon.Hash) (*gethtypes.Receipt, error)
	BlockByHash(ctx context.Context, hash gethcommon.Hash) (*gethtypes.Block, error)
	BlockReceipts(ctx context.Context, blockNrOrHash rpc.BlockNumberOrHash) ([]*gethtypes.Receipt, error)
}

// Fetcher builds proofs for transactions already mined on a node's chain.
type Fetcher struct {
	client ChainReader
	tracer trace.Tracer
	log    *log.Logger
}

// NewFetcher creates a fetcher reading from client.
func NewFetcher(client ChainReader, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{client: client, tracer: otel.Tracer(tracerName), log: logger.Module("proofgen")}
}

// ProveTransaction returns the proof of the transaction with hash txHash
// and its receipt.
func (f *Fetcher) ProveTransaction(ctx context.Context, txHash types.Hash) (_ *xcall.Proof, err error) {
	ctx, span := f.tracer.Start(ctx, "proofgen.ProveTransaction",
		trace.WithAttributes(attribute.String("tx", txHash.Hex())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	receipt, err := f.receipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("block", receipt.BlockHash.Hex()),
		attribute.Int64("index", int64(receipt.TransactionIndex)),
	)
	header, txs, receipts, err := f.block(ctx, receipt.BlockHash)
	if err != nil {
		return nil, err
	}
	proof, err := Build(header, txs, receipts, uint64(receipt.TransactionIndex))
	if err != nil {
		return nil, err
	}
	f.log.Debug("built proof", "tx", txHash, "block", header.Hash(), "index", receipt.TransactionIndex,
		"nodes", proof.NodeCount())
	return proof, nil
}

func (f *Fetcher) receipt(ctx context.Context, txHash types.Hash) (*gethtypes.Receipt, error) {
	ctx, span := f.tracer.Start(ctx, "proofgen.receipt")
	defer span.End()
	r, err := f.client.TransactionReceipt(ctx, geth.ToGethHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("proofgen: receipt of %s: %w", txHash, err)
	}
	return r, nil
}

func (f *Fetcher) block(ctx context.Context, hash gethcommon.Hash) (*types.Header, []*types.Transaction, []*types.Receipt, error) {
	ctx, span := f.tracer.Start(ctx, "proofgen.block", trace.WithAttributes(attribute.String("block", hash.Hex())))
	defer span.End()

	block, err := f.client.BlockByHash(ctx, hash)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("proofgen: block %s: %w", hash, err)
	}
	greceipts, err := f.client.BlockReceipts(ctx, rpc.BlockNumberOrHashWithHash(hash, false))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("proofgen: receipts of %s: %w", hash, err)
	}
	span.SetAttributes(attribute.Int("txs", len(block.Transactions())))

	header, err := geth.FromGethHeader(block.Header())
	if err != nil {
		return nil, nil, nil, err
	}
	txs := make([]*types.Transaction, 0, len(block.Transactions()))
	for _, gtx := range block.Transactions() {
		tx, err := geth.FromGethTransaction(gtx)
		if err != nil {
			return nil, nil, nil, err
		}
		txs = append(txs, tx)
	}
	receipts := make([]*types.Receipt, 0, len(greceipts))
	for _, gr := range greceipts {
		r, err := geth.FromGethReceipt(gr)
		if err != nil {
			return nil, nil, nil, err
		}
		receipts = append(receipts, r)
	}
	return header, txs, receipts, nil
}
