// Package sim runs registries on in-memory chains. Each chain executes
// calls as signed transactions, seals them into blocks whose roots commit
// to the transactions and receipts, and produces inclusion proofs for them.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/proofgen"
)

const (
	txBaseGas   = 21_000
	txByteGas   = 16
	blockGas    = 30_000_000
	blockPeriod = 12
)

var (
	ErrUnknownTx     = errors.New("sim: unknown transaction")
	ErrNoContract    = errors.New("sim: no contract at address")
	ErrGasLimit      = errors.New("sim: intrinsic gas exceeds limit")
	errContractPanic = errors.New("sim: contract panicked")
)

// HeaderSink receives every sealed header. relay.HeaderChain satisfies it.
type HeaderSink interface {
	InsertHeader(*types.Header) error
}

// Result is the outcome of one transaction.
type Result struct {
	Tx      *types.Transaction
	Receipt *types.Receipt
	Return  []byte
	Err     error // reason the call failed; the receipt has failed status
}

type block struct {
	header   *types.Header
	txs      []*types.Transaction
	receipts []*types.Receipt
}

type txLookup struct {
	block int
	index int
}

// Chain is a single-node chain hosting Go contracts.
type Chain struct {
	id  *big.Int
	log *log.Logger

	mu        sync.Mutex
	contracts map[types.Address]xcall.Contract
	nonces    map[types.Address]uint64
	blocks    []*block
	lookup    map[types.Hash]txLookup
	pending   block
	cumGas    uint64
	sinks     []HeaderSink
	frames    []*xcall.Frame
}

// NewChain creates a chain with a sealed genesis block.
func NewChain(chainID uint64, logger *log.Logger) *Chain {
	if logger == nil {
		logger = log.Default()
	}
	c := &Chain{
		id:        new(big.Int).SetUint64(chainID),
		log:       logger.Module("sim").With("chain", chainID),
		contracts: make(map[types.Address]xcall.Contract),
		nonces:    make(map[types.Address]uint64),
		lookup:    make(map[types.Hash]txLookup),
	}
	if _, err := c.seal(); err != nil {
		panic(fmt.Sprintf("sim: genesis: %v", err))
	}
	return c
}

// ID returns the chain id.
func (c *Chain) ID() uint64 { return c.id.Uint64() }

// Deploy places contract at addr.
func (c *Chain) Deploy(addr types.Address, contract xcall.Contract) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[addr] = contract
}

// Follow feeds every sealed header, starting with those already sealed,
// into sink.
func (c *Chain) Follow(sink HeaderSink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.blocks {
		if err := sink.InsertHeader(b.header); err != nil {
			return err
		}
	}
	c.sinks = append(c.sinks, sink)
	return nil
}

// Transact signs a call from acct to the contract at to and executes it
// into the pending block.
func (c *Chain) Transact(ctx context.Context, acct *geth.Account, to types.Address, input []byte, gasLimit uint64) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	intrinsic := txBaseGas + txByteGas*uint64(len(input))
	if gasLimit < intrinsic {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrGasLimit, intrinsic, gasLimit)
	}
	contract, ok := c.contracts[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContract, to)
	}
	tx, err := acct.SignCall(c.id, c.nonces[acct.Address], to, input, gasLimit)
	if err != nil {
		return nil, err
	}
	c.nonces[acct.Address]++

	frame := xcall.NewFrame(acct.Address, gasLimit-intrinsic)
	ret, callErr := c.run(ctx, contract, frame, input)

	status := types.ReceiptStatusSuccessful
	logs := frame.Logs()
	if callErr != nil {
		status = types.ReceiptStatusFailed
		logs = nil
	}
	c.cumGas += intrinsic
	receipt := types.NewReceipt(status, c.cumGas, logs)
	receipt.Type = tx.Type

	c.lookup[tx.Hash()] = txLookup{block: len(c.blocks), index: len(c.pending.txs)}
	c.pending.txs = append(c.pending.txs, tx)
	c.pending.receipts = append(c.pending.receipts, receipt)

	if callErr != nil {
		c.log.Debug("transaction failed", "tx", tx.Hash(), "to", to, "err", callErr)
	}
	return &Result{Tx: tx, Receipt: receipt, Return: ret, Err: callErr}, nil
}

// run executes contract in frame, turning a panic into an error.
func (c *Chain) run(ctx context.Context, contract xcall.Contract, frame *xcall.Frame, input []byte) (ret []byte, err error) {
	c.frames = append(c.frames, frame)
	defer func() {
		c.frames = c.frames[:len(c.frames)-1]
		if r := recover(); r != nil {
			ret, err = nil, fmt.Errorf("%w: %v", errContractPanic, r)
		}
	}()
	return contract.Call(ctx, frame, input)
}

// Invoke implements xcall.Invoker for contracts running on this chain. It
// must only be called from inside a transaction. Logs of a successful
// callee join the caller's frame. Calling an address without a contract
// succeeds with empty output.
func (c *Chain) Invoke(ctx context.Context, from, to types.Address, input []byte, gas uint64) (bool, []byte) {
	contract, ok := c.contracts[to]
	if !ok {
		return true, nil
	}
	frame := xcall.NewFrame(from, gas)
	ret, err := c.run(ctx, contract, frame, input)
	if err != nil {
		c.log.Debug("inner call failed", "from", from, "to", to, "err", err)
		return false, nil
	}
	if n := len(c.frames); n > 0 {
		parent := c.frames[n-1]
		for _, l := range frame.Logs() {
			parent.Emit(l)
		}
	}
	return true, ret
}

// Seal closes the pending block and passes its header to followers.
func (c *Chain) Seal() (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seal()
}

func (c *Chain) seal() (*types.Header, error) {
	template := &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Root:       types.EmptyRootHash,
		Difficulty: big.NewInt(1),
		Number:     big.NewInt(int64(len(c.blocks))),
		GasLimit:   blockGas,
		Time:       uint64(len(c.blocks)) * blockPeriod,
		Extra:      []byte("xcall-sim"),
		BaseFee:    big.NewInt(1),
	}
	if n := len(c.blocks); n > 0 {
		template.ParentHash = c.blocks[n-1].header.Hash()
	}
	header, err := proofgen.DeriveHeader(template, c.pending.txs, c.pending.receipts)
	if err != nil {
		return nil, err
	}
	b := &block{header: header, txs: c.pending.txs, receipts: c.pending.receipts}
	c.blocks = append(c.blocks, b)
	c.pending = block{}
	c.cumGas = 0

	for _, sink := range c.sinks {
		if err := sink.InsertHeader(header); err != nil {
			return nil, err
		}
	}
	c.log.Debug("sealed block", "number", header.NumberU64(), "hash", header.Hash(), "txs", len(b.txs))
	return header, nil
}

// Head returns the latest sealed header.
func (c *Chain) Head() *types.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1].header
}

// Prove returns the inclusion proof of a sealed transaction.
func (c *Chain) Prove(txHash types.Hash) (*xcall.Proof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.lookup[txHash]
	if !ok || loc.block >= len(c.blocks) {
		return nil, fmt.Errorf("%w: %s not sealed", ErrUnknownTx, txHash)
	}
	b := c.blocks[loc.block]
	return proofgen.Build(b.header, b.txs, b.receipts, uint64(loc.index))
}
