package trie

import (
	"errors"
	"fmt"

	"github.com/eth2030/xcall/rlp"
)

var errDecodeInvalid = errors.New("invalid encoded node")

// ref is a reference from a parent node to a child: either the child's
// 32-byte hash or, for encodings shorter than 32 bytes, the child itself.
type ref struct {
	hash   []byte
	inline []byte
}

func (r ref) empty() bool { return r.hash == nil && r.inline == nil }

// proofNode is a decoded branch, extension or leaf node.
type proofNode struct {
	branch   bool
	children [16]ref // branch only
	value    []byte  // branch value slot or leaf value
	path     []byte  // extension/leaf nibbles; leaves end with the terminator
	next     ref     // extension child
}

func decodeNode(data []byte) (*proofNode, error) {
	elems, err := rlp.ListElems(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDecodeInvalid, err)
	}
	switch len(elems) {
	case 2:
		return decodeShort(elems)
	case 17:
		return decodeFull(elems)
	default:
		return nil, fmt.Errorf("%w: expected 2 or 17 elements, got %d", errDecodeInvalid, len(elems))
	}
}

func decodeShort(elems [][]byte) (*proofNode, error) {
	compact, _, err := rlp.SplitString(elems[0])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %w", errDecodeInvalid, err)
	}
	path, err := compactToHex(compact)
	if err != nil {
		return nil, err
	}
	n := &proofNode{path: path}
	if hasTerm(path) {
		if n.value, _, err = rlp.SplitString(elems[1]); err != nil {
			return nil, fmt.Errorf("%w: leaf value: %w", errDecodeInvalid, err)
		}
		return n, nil
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: extension with empty path", errDecodeInvalid)
	}
	if n.next, err = decodeRef(elems[1]); err != nil {
		return nil, err
	}
	if n.next.empty() {
		return nil, fmt.Errorf("%w: extension without child", errDecodeInvalid)
	}
	return n, nil
}

func decodeFull(elems [][]byte) (*proofNode, error) {
	n := &proofNode{branch: true}
	for i := 0; i < 16; i++ {
		r, err := decodeRef(elems[i])
		if err != nil {
			return nil, err
		}
		n.children[i] = r
	}
	val, _, err := rlp.SplitString(elems[16])
	if err != nil {
		return nil, fmt.Errorf("%w: branch value: %w", errDecodeInvalid, err)
	}
	n.value = val
	return n, nil
}

// decodeRef decodes a child reference from its raw RLP element.
func decodeRef(raw []byte) (ref, error) {
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return ref{}, fmt.Errorf("%w: %w", errDecodeInvalid, err)
	}
	switch {
	case kind == rlp.List:
		if len(raw) >= 32 {
			return ref{}, fmt.Errorf("%w: inline node of %d bytes", errDecodeInvalid, len(raw))
		}
		return ref{inline: raw}, nil
	case kind == rlp.String && len(content) == 0:
		return ref{}, nil
	case kind == rlp.String && len(content) == 32:
		return ref{hash: content}, nil
	default:
		return ref{}, fmt.Errorf("%w: reference of %d bytes", errDecodeInvalid, len(content))
	}
}
