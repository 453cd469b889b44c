// Package geth is the adapter between xcall's consensus types and
// go-ethereum's. Conversions go through the consensus encodings, so a value
// survives the round trip exactly when both sides agree on its bytes.
package geth

import (
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethrlp "github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/xcall/core/types"
)

// ToGethAddress converts an Address to a go-ethereum Address.
func ToGethAddress(a types.Address) gethcommon.Address {
	return gethcommon.Address(a)
}

// FromGethAddress converts a go-ethereum Address.
func FromGethAddress(a gethcommon.Address) types.Address {
	return types.Address(a)
}

// ToGethHash converts a Hash to a go-ethereum Hash.
func ToGethHash(h types.Hash) gethcommon.Hash {
	return gethcommon.Hash(h)
}

// FromGethHash converts a go-ethereum Hash.
func FromGethHash(h gethcommon.Hash) types.Hash {
	return types.Hash(h)
}

// FromGethHeader converts a go-ethereum header.
func FromGethHeader(h *gethtypes.Header) (*types.Header, error) {
	enc, err := gethrlp.EncodeToBytes(h)
	if err != nil {
		return nil, fmt.Errorf("geth: encode header: %w", err)
	}
	return types.DecodeHeader(enc)
}

// ToGethHeader converts a header to go-ethereum's representation.
func ToGethHeader(h *types.Header) (*gethtypes.Header, error) {
	out := new(gethtypes.Header)
	if err := gethrlp.DecodeBytes(h.EncodeRLP(), out); err != nil {
		return nil, fmt.Errorf("geth: decode header: %w", err)
	}
	return out, nil
}

// FromGethTransaction converts a go-ethereum transaction.
func FromGethTransaction(tx *gethtypes.Transaction) (*types.Transaction, error) {
	enc, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("geth: encode transaction: %w", err)
	}
	return types.DecodeTransaction(enc)
}

// ToGethTransaction converts a transaction to go-ethereum's representation.
func ToGethTransaction(tx *types.Transaction) (*gethtypes.Transaction, error) {
	out := new(gethtypes.Transaction)
	if err := out.UnmarshalBinary(tx.EncodeRLP()); err != nil {
		return nil, fmt.Errorf("geth: decode transaction: %w", err)
	}
	return out, nil
}

// FromGethReceipt converts the consensus fields of a go-ethereum receipt.
func FromGethReceipt(r *gethtypes.Receipt) (*types.Receipt, error) {
	enc, err := r.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("geth: encode receipt: %w", err)
	}
	return types.DecodeReceipt(enc)
}

// FromGethLog converts the consensus fields of a go-ethereum log.
func FromGethLog(l *gethtypes.Log) *types.Log {
	topics := make([]types.Hash, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = FromGethHash(t)
	}
	return &types.Log{Address: FromGethAddress(l.Address), Topics: topics, Data: l.Data}
}
