// Package trie verifies Merkle-Patricia inclusion proofs of the kind used
// for block transaction and receipt tries.
//
// Verification is a pure function: it never panics on adversarial input
// and reports its verdict as a Result rather than an error, so callers can
// treat "not a member" and "malformed proof" alike while diagnostics keep
// them apart.
package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/crypto"
)

// Outcome classifies a proof verification.
type Outcome int

const (
	// NotMember means the proof is well formed but the key is absent or
	// bound to a different value.
	NotMember Outcome = iota
	// Member means the key is bound to the returned value under the root.
	Member
	// Malformed means the proof itself is inconsistent: a missing node, a
	// node that does not hash to its reference, an undecodable node or
	// nodes left over after the walk.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case NotMember:
		return "not-member"
	case Member:
		return "member"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var (
	ErrNotMember      = errors.New("trie: key not a member")
	ErrMalformedProof = errors.New("trie: malformed proof")
)

// Result is the verdict of a proof verification.
type Result struct {
	Outcome Outcome
	Value   []byte // bound value, set only for Member
	Reason  string // diagnostic detail for NotMember and Malformed
}

// Included reports whether the key was proven to be a member.
func (r Result) Included() bool { return r.Outcome == Member }

// Err converts the result into nil for members and a wrapped ErrNotMember
// or ErrMalformedProof otherwise.
func (r Result) Err() error {
	switch r.Outcome {
	case Member:
		return nil
	case Malformed:
		return fmt.Errorf("%w: %s", ErrMalformedProof, r.Reason)
	default:
		return fmt.Errorf("%w: %s", ErrNotMember, r.Reason)
	}
}

func notMember(format string, args ...any) Result {
	return Result{Outcome: NotMember, Reason: fmt.Sprintf(format, args...)}
}

func malformed(format string, args ...any) Result {
	return Result{Outcome: Malformed, Reason: fmt.Sprintf(format, args...)}
}

// Verify walks proof from root along key and returns the value bound to
// key. The first node must hash to root and every hashed child reference
// must be satisfied by the next node in order; children whose encoding is
// shorter than 32 bytes are embedded in their parent and take no entry.
// Every node must be consumed by the walk.
func Verify(root types.Hash, key []byte, proof [][]byte) Result {
	if len(proof) == 0 {
		return notMember("empty proof")
	}
	var (
		path = keybytesToHex(key)
		next = ref{hash: root[:]}
		used int
		res  Result
	)
	for {
		var data []byte
		if next.hash != nil {
			if used == len(proof) {
				return malformed("missing node %d", used)
			}
			data = proof[used]
			if !bytes.Equal(crypto.Keccak256(data), next.hash) {
				return malformed("node %d does not match its reference", used)
			}
			used++
		} else {
			data = next.inline
		}
		n, err := decodeNode(data)
		if err != nil {
			return malformed("node %d: %v", used-1, err)
		}

		var done bool
		next, res, done = step(n, &path)
		if done {
			break
		}
	}
	if res.Outcome != Malformed && used != len(proof) {
		return malformed("%d trailing proof nodes", len(proof)-used)
	}
	return res
}

// step consumes the part of path matched by n and returns the child to
// visit, or the final result when the walk ends at n.
func step(n *proofNode, path *[]byte) (ref, Result, bool) {
	key := *path
	if n.branch {
		if key[0] == terminatorByte {
			if len(n.value) == 0 {
				return ref{}, notMember("empty branch value"), true
			}
			return ref{}, Result{Outcome: Member, Value: n.value}, true
		}
		child := n.children[key[0]]
		if child.empty() {
			return ref{}, notMember("empty branch slot %x", key[0]), true
		}
		*path = key[1:]
		return child, Result{}, false
	}

	matched := prefixLen(key, n.path)
	if hasTerm(n.path) {
		if matched != len(n.path) || matched != len(key) {
			return ref{}, notMember("leaf diverges from key"), true
		}
		return ref{}, Result{Outcome: Member, Value: n.value}, true
	}
	if matched != len(n.path) {
		return ref{}, notMember("extension diverges from key"), true
	}
	*path = key[matched:]
	return n.next, Result{}, false
}

// VerifyValue verifies that key is bound to expected under root. A proof
// of a different value is reported as NotMember.
func VerifyValue(root types.Hash, key []byte, proof [][]byte, expected []byte) Result {
	res := Verify(root, key, proof)
	if res.Outcome == Member && !bytes.Equal(res.Value, expected) {
		return notMember("value mismatch")
	}
	return res
}
