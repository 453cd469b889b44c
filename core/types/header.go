package types

import (
	"fmt"
	"math/big"

	"github.com/eth2030/xcall/rlp"
)

// Header represents a block header of the source chain.
type Header struct {
	ParentHash  Hash
	UncleHash   Hash
	Coinbase    Address
	Root        Hash
	TxHash      Hash
	ReceiptHash Hash
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   Hash
	Nonce       BlockNonce

	// EIP-1559
	BaseFee *big.Int

	// EIP-4895: Beacon chain push withdrawals
	WithdrawalsHash *Hash

	// EIP-4844: Shard blob transactions
	BlobGasUsed   *uint64
	ExcessBlobGas *uint64

	// EIP-4788: Beacon block root in the EVM
	ParentBeaconRoot *Hash

	// EIP-7685: General purpose execution layer requests
	RequestsHash *Hash
}

// NumberU64 returns the block number, or zero when unset.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

// Hash returns the keccak256 hash of the full RLP encoding, which is the
// block hash on the source chain.
func (h *Header) Hash() Hash {
	return keccakHash(h.EncodeRLP())
}

// EncodeRLP returns the RLP encoding of the header in Yellow Paper field order:
// [ParentHash, UncleHash, Coinbase, Root, TxHash, ReceiptHash, Bloom,
//
//	Difficulty, Number, GasLimit, GasUsed, Time, Extra, MixDigest, Nonce,
//	BaseFee, WithdrawalsHash, BlobGasUsed, ExcessBlobGas, ParentBeaconRoot, RequestsHash]
//
// Optional fields are written up to the last one that is set; unset fields
// before it are written as zero values.
func (h *Header) EncodeRLP() []byte {
	return rlp.EncodeList(h.fields(true)...)
}

// EncodeRLPWithoutSeal returns the encoding with MixDigest and Nonce left
// out, which is the preimage of the proof-of-work seal.
func (h *Header) EncodeRLPWithoutSeal() []byte {
	return rlp.EncodeList(h.fields(false)...)
}

func (h *Header) fields(withSeal bool) [][]byte {
	items := [][]byte{
		rlp.EncodeBytes(h.ParentHash[:]),
		rlp.EncodeBytes(h.UncleHash[:]),
		rlp.EncodeBytes(h.Coinbase[:]),
		rlp.EncodeBytes(h.Root[:]),
		rlp.EncodeBytes(h.TxHash[:]),
		rlp.EncodeBytes(h.ReceiptHash[:]),
		rlp.EncodeBytes(h.Bloom[:]),
		rlp.EncodeBigInt(h.Difficulty),
		rlp.EncodeBigInt(h.Number),
		rlp.EncodeUint64(h.GasLimit),
		rlp.EncodeUint64(h.GasUsed),
		rlp.EncodeUint64(h.Time),
		rlp.EncodeBytes(h.Extra),
	}
	if withSeal {
		items = append(items, rlp.EncodeBytes(h.MixDigest[:]), rlp.EncodeBytes(h.Nonce[:]))
	}

	optional := [][]byte{
		rlp.EncodeBigInt(h.BaseFee),
		encodeOptHash(h.WithdrawalsHash),
		encodeOptUint64(h.BlobGasUsed),
		encodeOptUint64(h.ExcessBlobGas),
		encodeOptHash(h.ParentBeaconRoot),
		encodeOptHash(h.RequestsHash),
	}
	present := []bool{
		h.BaseFee != nil,
		h.WithdrawalsHash != nil,
		h.BlobGasUsed != nil,
		h.ExcessBlobGas != nil,
		h.ParentBeaconRoot != nil,
		h.RequestsHash != nil,
	}
	last := -1
	for i, ok := range present {
		if ok {
			last = i
		}
	}
	return append(items, optional[:last+1]...)
}

func encodeOptHash(h *Hash) []byte {
	if h == nil {
		return rlp.EncodeBytes(make([]byte, HashLength))
	}
	return rlp.EncodeBytes(h[:])
}

func encodeOptUint64(v *uint64) []byte {
	if v == nil {
		return rlp.EncodeUint64(0)
	}
	return rlp.EncodeUint64(*v)
}

// DecodeHeader decodes a full (sealed) header encoding. Errors wrap ErrCodec.
func DecodeHeader(data []byte) (*Header, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, codecErr("header", err)
	}
	return h, nil
}

func decodeHeader(data []byte) (*Header, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	h := new(Header)
	for _, f := range []*Hash{&h.ParentHash, &h.UncleHash} {
		if err := readHash(s, f); err != nil {
			return nil, err
		}
	}
	if err := readAddress(s, &h.Coinbase); err != nil {
		return nil, err
	}
	for _, f := range []*Hash{&h.Root, &h.TxHash, &h.ReceiptHash} {
		if err := readHash(s, f); err != nil {
			return nil, err
		}
	}
	bloom, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(bloom) != BloomLength {
		return nil, fmt.Errorf("bloom length %d", len(bloom))
	}
	copy(h.Bloom[:], bloom)

	if h.Difficulty, err = s.BigInt(); err != nil {
		return nil, err
	}
	if h.Number, err = s.BigInt(); err != nil {
		return nil, err
	}
	for _, f := range []*uint64{&h.GasLimit, &h.GasUsed, &h.Time} {
		if *f, err = s.Uint64(); err != nil {
			return nil, err
		}
	}
	if h.Extra, err = s.Bytes(); err != nil {
		return nil, err
	}
	if err := readHash(s, &h.MixDigest); err != nil {
		return nil, err
	}
	nonce, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(nonce) != len(BlockNonce{}) {
		return nil, fmt.Errorf("nonce length %d", len(nonce))
	}
	copy(h.Nonce[:], nonce)

	if !s.AtListEnd() {
		if h.BaseFee, err = s.BigInt(); err != nil {
			return nil, err
		}
	}
	if !s.AtListEnd() {
		if h.WithdrawalsHash, err = readOptHash(s); err != nil {
			return nil, err
		}
	}
	if !s.AtListEnd() {
		if h.BlobGasUsed, err = readOptUint64(s); err != nil {
			return nil, err
		}
	}
	if !s.AtListEnd() {
		if h.ExcessBlobGas, err = readOptUint64(s); err != nil {
			return nil, err
		}
	}
	if !s.AtListEnd() {
		if h.ParentBeaconRoot, err = readOptHash(s); err != nil {
			return nil, err
		}
	}
	if !s.AtListEnd() {
		if h.RequestsHash, err = readOptHash(s); err != nil {
			return nil, err
		}
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return h, nil
}

func readOptHash(s *rlp.Stream) (*Hash, error) {
	var h Hash
	if err := readHash(s, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func readOptUint64(s *rlp.Stream) (*uint64, error) {
	v, err := s.Uint64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
