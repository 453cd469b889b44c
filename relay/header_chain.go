package relay

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/metrics"
)

// Header chain errors.
var (
	ErrNilHeader     = errors.New("relay: nil header")
	ErrUnknownParent = errors.New("relay: parent header not found in chain")
	ErrBadNumber     = errors.New("relay: header number is not parent+1")
	ErrDuplicate     = errors.New("relay: header already in chain")
)

// HeaderChain is an in-process Oracle that tracks submitted source-chain
// headers. The first inserted header is the trust anchor; every later
// header must extend a known one. The canonical head is the header with the
// greatest total difficulty, the earlier one winning ties. Headers are not
// checked against any consensus rules.
type HeaderChain struct {
	mu sync.RWMutex

	headers map[types.Hash]*types.Header
	td      map[types.Hash]*big.Int
	canon   map[uint64]types.Hash // number -> canonical hash
	roots   [2]map[types.Hash][]types.Hash

	anchor  types.Hash
	head    types.Hash
	headNum uint64
	headTD  *big.Int

	log *log.Logger
}

// NewHeaderChain creates an empty chain.
func NewHeaderChain(logger *log.Logger) *HeaderChain {
	if logger == nil {
		logger = log.Default()
	}
	return &HeaderChain{
		headers: make(map[types.Hash]*types.Header),
		td:      make(map[types.Hash]*big.Int),
		canon:   make(map[uint64]types.Hash),
		roots:   [2]map[types.Hash][]types.Hash{make(map[types.Hash][]types.Hash), make(map[types.Hash][]types.Hash)},
		headTD:  new(big.Int),
		log:     logger.Module("relay"),
	}
}

// InsertHeader adds a header to the chain and moves the canonical head if
// the header's total difficulty exceeds the current head's.
func (hc *HeaderChain) InsertHeader(header *types.Header) error {
	if header == nil || header.Number == nil {
		return ErrNilHeader
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hash := header.Hash()
	if _, exists := hc.headers[hash]; exists {
		return ErrDuplicate
	}
	num := header.Number.Uint64()

	parentTD := new(big.Int)
	if len(hc.headers) > 0 {
		parent, ok := hc.headers[header.ParentHash]
		if !ok {
			return ErrUnknownParent
		}
		if parent.Number.Uint64()+1 != num {
			return ErrBadNumber
		}
		parentTD = hc.td[header.ParentHash]
	} else {
		hc.anchor = hash
	}

	weight := big.NewInt(1)
	if header.Difficulty != nil && header.Difficulty.Sign() > 0 {
		weight = header.Difficulty
	}
	td := new(big.Int).Add(parentTD, weight)

	hc.headers[hash] = header
	hc.td[hash] = td
	hc.roots[TransactionsRoot][header.TxHash] = append(hc.roots[TransactionsRoot][header.TxHash], hash)
	hc.roots[ReceiptsRoot][header.ReceiptHash] = append(hc.roots[ReceiptsRoot][header.ReceiptHash], hash)

	if td.Cmp(hc.headTD) > 0 {
		reorg := len(hc.canon) > 0 && header.ParentHash != hc.head
		hc.setHead(hash, num, td)
		if reorg {
			hc.log.Info("canonical chain reorganised", "number", num, "hash", hash)
		}
	}
	hc.log.Debug("header inserted", "number", num, "hash", hash, "td", td)
	return nil
}

// InsertChain inserts headers in order and returns how many were accepted
// before the first failure.
func (hc *HeaderChain) InsertChain(headers []*types.Header) (int, error) {
	for i, h := range headers {
		if err := hc.InsertHeader(h); err != nil {
			return i, err
		}
	}
	return len(headers), nil
}

// setHead rewrites the canonical number index back to the fork point.
func (hc *HeaderChain) setHead(hash types.Hash, num uint64, td *big.Int) {
	for n := num + 1; n <= hc.headNum; n++ {
		delete(hc.canon, n)
	}
	cur := hash
	for {
		h := hc.headers[cur]
		n := h.Number.Uint64()
		if existing, ok := hc.canon[n]; ok && existing == cur {
			break
		}
		hc.canon[n] = cur
		if cur == hc.anchor {
			break
		}
		cur = h.ParentHash
	}
	hc.head, hc.headNum = hash, num
	hc.headTD = td
	metrics.RelayHead.Set(int64(num))
}

// Head returns the canonical head, or nil for an empty chain.
func (hc *HeaderChain) Head() *types.Header {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.headers[hc.head]
}

// GetHeader returns the header with the given hash, or nil.
func (hc *HeaderChain) GetHeader(hash types.Hash) *types.Header {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.headers[hash]
}

// GetHeaderByNumber returns the canonical header at num, or nil.
func (hc *HeaderChain) GetHeaderByNumber(num uint64) *types.Header {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	hash, ok := hc.canon[num]
	if !ok {
		return nil
	}
	return hc.headers[hash]
}

// TotalDifficulty returns the total difficulty of the given header.
func (hc *HeaderChain) TotalDifficulty(hash types.Hash) *big.Int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if td, ok := hc.td[hash]; ok {
		return new(big.Int).Set(td)
	}
	return nil
}

// Len returns the number of known headers.
func (hc *HeaderChain) Len() int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.headers)
}

func (hc *HeaderChain) isCanonical(hash types.Hash) bool {
	h, ok := hc.headers[hash]
	return ok && hc.canon[h.Number.Uint64()] == hash
}

// ValidateHeader implements Oracle.
func (hc *HeaderChain) ValidateHeader(_ context.Context, hash types.Hash, confirmations uint64) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if !hc.isCanonical(hash) {
		return false
	}
	return hc.headNum-hc.headers[hash].Number.Uint64() >= confirmations
}

// ValidateRoot implements Oracle.
func (hc *HeaderChain) ValidateRoot(_ context.Context, root types.Hash, kind RootKind) bool {
	if kind > ReceiptsRoot {
		return false
	}
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	for _, hash := range hc.roots[kind][root] {
		if hc.isCanonical(hash) {
			return true
		}
	}
	return false
}
