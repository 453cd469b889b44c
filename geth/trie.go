package geth

import (
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethrawdb "github.com/ethereum/go-ethereum/core/rawdb"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/rlp"
)

// IndexTrie is a Merkle-Patricia trie keyed by rlp(index), the layout of a
// block's transactions and receipts tries.
type IndexTrie struct {
	tr *gethtrie.Trie
}

// NewIndexTrie builds the trie mapping rlp(i) to values[i].
func NewIndexTrie(values [][]byte) (*IndexTrie, error) {
	tr := gethtrie.NewEmpty(triedb.NewDatabase(gethrawdb.NewMemoryDatabase(), nil))
	for i, v := range values {
		if err := tr.Update(trieKey(uint64(i)), v); err != nil {
			return nil, fmt.Errorf("geth: trie update %d: %w", i, err)
		}
	}
	return &IndexTrie{tr: tr}, nil
}

// Root returns the trie root hash.
func (t *IndexTrie) Root() types.Hash {
	return FromGethHash(t.tr.Hash())
}

// Prove returns the nodes on the path to key, root first.
func (t *IndexTrie) Prove(key []byte) ([][]byte, error) {
	var nodes proofList
	if err := t.tr.Prove(key, &nodes); err != nil {
		return nil, fmt.Errorf("geth: prove %x: %w", key, err)
	}
	return nodes, nil
}

// ProveIndex returns the proof for values[index].
func (t *IndexTrie) ProveIndex(index uint64) ([][]byte, error) {
	return t.Prove(trieKey(index))
}

// DeriveRoot returns the root of the trie mapping rlp(i) to values[i].
func DeriveRoot(values [][]byte) (types.Hash, error) {
	t, err := NewIndexTrie(values)
	if err != nil {
		return types.Hash{}, err
	}
	return t.Root(), nil
}

// proofList collects nodes in the order the trie writes them.
type proofList [][]byte

func (l *proofList) Put(_ []byte, value []byte) error {
	*l = append(*l, gethcommon.CopyBytes(value))
	return nil
}

func (l *proofList) Delete([]byte) error {
	return fmt.Errorf("geth: proof list is append-only")
}

func trieKey(index uint64) []byte {
	return rlp.EncodeUint64(index)
}
