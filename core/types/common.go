// Package types defines the chain data structures carried inside
// cross-chain proofs: block headers, transactions, receipts and logs,
// together with their canonical RLP encodings.
package types

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
)

// Hash is a Keccak-256 digest: block hashes, trie roots, event topics.
type Hash [HashLength]byte

// Address identifies an account or contract.
type Address [AddressLength]byte

// Bloom is the 2048-bit log filter of receipts and headers.
type Bloom [BloomLength]byte

// BlockNonce is the 8-byte seal nonce of a header.
type BlockNonce [8]byte

// EmptyRootHash is the root of an empty Merkle-Patricia trie and
// EmptyUncleHash is keccak256(rlp([])).
var (
	EmptyRootHash  = HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
	EmptyUncleHash = HexToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")
)

// rightAligned copies the last len(dst) bytes of src into the tail of dst.
func rightAligned(dst, src []byte) {
	if len(src) > len(dst) {
		src = src[len(src)-len(dst):]
	}
	copy(dst[len(dst)-len(src):], src)
}

// parseHex decodes s with or without a 0x prefix. Odd lengths get a
// leading zero nibble; invalid input yields nil.
func parseHex(s string) []byte {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// BytesToHash left-pads or truncates b to a Hash.
func BytesToHash(b []byte) (h Hash) {
	rightAligned(h[:], b)
	return h
}

// HexToHash parses a hex hash, leniently.
func HexToHash(s string) Hash { return BytesToHash(parseHex(s)) }

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte { return append([]byte(nil), h[:]...) }

func (h Hash) Hex() string { return hexutil.Encode(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText encodes the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) { return hexutil.Bytes(h[:]).MarshalText() }

// UnmarshalText parses exactly 32 bytes of 0x-prefixed hex.
func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Hash", input, h[:])
}

// BytesToAddress left-pads or truncates b to an Address.
func BytesToAddress(b []byte) (a Address) {
	rightAligned(a[:], b)
	return a
}

// HexToAddress parses a hex address, leniently.
func HexToAddress(s string) Address { return BytesToAddress(parseHex(s)) }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

func (a Address) Hex() string { return hexutil.Encode(a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) IsZero() bool { return a == Address{} }

// MarshalText encodes the address as 0x-prefixed hex.
func (a Address) MarshalText() ([]byte, error) { return hexutil.Bytes(a[:]).MarshalText() }

// UnmarshalText parses exactly 20 bytes of 0x-prefixed hex.
func (a *Address) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Address", input, a[:])
}

func keccakHash(data []byte) (h Hash) {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	d.Sum(h[:0])
	return h
}
