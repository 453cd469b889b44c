package relay

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/log"
)

// DefaultRPCTimeout bounds every node query made by RPCOracle.
const DefaultRPCTimeout = 10 * time.Second

// HeaderReader is the subset of ethclient.Client used by RPCOracle.
type HeaderReader interface {
	HeaderByHash(ctx context.Context, hash gethcommon.Hash) (*gethtypes.Header, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// RPCOracle trusts a JSON-RPC node's view of the source chain. A header
// is valid when the node's canonical block at its number has the same hash
// and enough blocks on top. Roots of validated headers are remembered so
// that ValidateRoot can answer without another round trip.
type RPCOracle struct {
	client  HeaderReader
	timeout time.Duration
	log     *log.Logger

	mu    sync.Mutex
	roots [2]map[types.Hash]types.Hash // root -> header hash
}

// NewRPCOracle wraps client. A zero timeout selects DefaultRPCTimeout.
func NewRPCOracle(client HeaderReader, timeout time.Duration, logger *log.Logger) *RPCOracle {
	if timeout <= 0 {
		timeout = DefaultRPCTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RPCOracle{
		client:  client,
		timeout: timeout,
		log:     logger.Module("relay-rpc"),
		roots:   [2]map[types.Hash]types.Hash{make(map[types.Hash]types.Hash), make(map[types.Hash]types.Hash)},
	}
}

// DialRPCOracle connects to the node at url.
func DialRPCOracle(ctx context.Context, url string, timeout time.Duration, logger *log.Logger) (*RPCOracle, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("relay: dial %s: %w", url, err)
	}
	return NewRPCOracle(client, timeout, logger), client, nil
}

// ValidateHeader implements Oracle.
func (o *RPCOracle) ValidateHeader(ctx context.Context, hash types.Hash, confirmations uint64) bool {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	header, err := o.client.HeaderByHash(ctx, gethcommon.Hash(hash))
	if err != nil {
		o.log.Debug("header lookup failed", "hash", hash, "err", err)
		return false
	}
	canonical, err := o.client.HeaderByNumber(ctx, header.Number)
	if err != nil || canonical.Hash() != header.Hash() {
		o.log.Debug("header not canonical", "hash", hash, "number", header.Number, "err", err)
		return false
	}
	head, err := o.client.BlockNumber(ctx)
	if err != nil {
		o.log.Warn("head lookup failed", "err", err)
		return false
	}
	num := header.Number.Uint64()
	if head < num || head-num < confirmations {
		return false
	}

	o.mu.Lock()
	o.roots[TransactionsRoot][types.Hash(header.TxHash)] = hash
	o.roots[ReceiptsRoot][types.Hash(header.ReceiptHash)] = hash
	o.mu.Unlock()
	return true
}

// ValidateRoot implements Oracle. Only roots of headers previously accepted
// by ValidateHeader are known.
func (o *RPCOracle) ValidateRoot(_ context.Context, root types.Hash, kind RootKind) bool {
	if kind > ReceiptsRoot {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.roots[kind][root]
	return ok
}
