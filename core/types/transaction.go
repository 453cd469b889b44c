package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eth2030/xcall/rlp"
)

// Transaction types.
const (
	LegacyTxType     uint8 = 0x00
	AccessListTxType uint8 = 0x01
	DynamicFeeTxType uint8 = 0x02
)

var errTxType = errors.New("unsupported transaction type")

// AccessTuple is a single address and its accessed storage slots.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is an EIP-2930 access list.
type AccessList []AccessTuple

// Transaction is a signed transaction in one of the supported envelopes.
// Fields that do not belong to Type are ignored when encoding.
type Transaction struct {
	Type       uint8
	ChainID    *big.Int // typed transactions only
	Nonce      uint64
	GasPrice   *big.Int // legacy and access-list transactions
	GasTipCap  *big.Int // dynamic-fee transactions
	GasFeeCap  *big.Int // dynamic-fee transactions
	Gas        uint64
	To         *Address // nil for contract creation
	Value      *big.Int
	Data       []byte
	AccessList AccessList

	V, R, S *big.Int
}

// Hash returns the transaction hash: keccak256 of the encoded envelope.
func (tx *Transaction) Hash() Hash {
	return keccakHash(tx.EncodeRLP())
}

// EncodeRLP returns the consensus encoding of the transaction. Legacy
// transactions are a plain RLP list; typed transactions are the type byte
// followed by the RLP list of their fields. This is the value stored in the
// block's transaction trie.
func (tx *Transaction) EncodeRLP() []byte {
	switch tx.Type {
	case AccessListTxType:
		body := rlp.EncodeList(
			rlp.EncodeBigInt(tx.ChainID),
			rlp.EncodeUint64(tx.Nonce),
			rlp.EncodeBigInt(tx.GasPrice),
			rlp.EncodeUint64(tx.Gas),
			encodeRecipient(tx.To),
			rlp.EncodeBigInt(tx.Value),
			rlp.EncodeBytes(tx.Data),
			encodeAccessList(tx.AccessList),
			rlp.EncodeBigInt(tx.V),
			rlp.EncodeBigInt(tx.R),
			rlp.EncodeBigInt(tx.S),
		)
		return append([]byte{AccessListTxType}, body...)
	case DynamicFeeTxType:
		body := rlp.EncodeList(
			rlp.EncodeBigInt(tx.ChainID),
			rlp.EncodeUint64(tx.Nonce),
			rlp.EncodeBigInt(tx.GasTipCap),
			rlp.EncodeBigInt(tx.GasFeeCap),
			rlp.EncodeUint64(tx.Gas),
			encodeRecipient(tx.To),
			rlp.EncodeBigInt(tx.Value),
			rlp.EncodeBytes(tx.Data),
			encodeAccessList(tx.AccessList),
			rlp.EncodeBigInt(tx.V),
			rlp.EncodeBigInt(tx.R),
			rlp.EncodeBigInt(tx.S),
		)
		return append([]byte{DynamicFeeTxType}, body...)
	default:
		return rlp.EncodeList(
			rlp.EncodeUint64(tx.Nonce),
			rlp.EncodeBigInt(tx.GasPrice),
			rlp.EncodeUint64(tx.Gas),
			encodeRecipient(tx.To),
			rlp.EncodeBigInt(tx.Value),
			rlp.EncodeBytes(tx.Data),
			rlp.EncodeBigInt(tx.V),
			rlp.EncodeBigInt(tx.R),
			rlp.EncodeBigInt(tx.S),
		)
	}
}

func encodeAccessList(al AccessList) []byte {
	tuples := make([][]byte, len(al))
	for i, t := range al {
		keys := make([][]byte, len(t.StorageKeys))
		for j := range t.StorageKeys {
			keys[j] = t.StorageKeys[j][:]
		}
		tuples[i] = rlp.EncodeList(rlp.EncodeBytes(t.Address[:]), rlp.EncodeBytesList(keys))
	}
	return rlp.EncodeList(tuples...)
}

// DecodeTransaction decodes a transaction from its consensus encoding.
// Errors wrap ErrCodec.
func DecodeTransaction(data []byte) (*Transaction, error) {
	tx, err := decodeTransaction(data)
	if err != nil {
		return nil, codecErr("transaction", err)
	}
	return tx, nil
}

func decodeTransaction(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, rlp.ErrExpectedList
	}
	if data[0] >= 0xc0 {
		return decodeLegacyTx(data)
	}
	switch data[0] {
	case AccessListTxType, DynamicFeeTxType:
		return decodeTypedTx(data[0], data[1:])
	default:
		return nil, fmt.Errorf("%w: 0x%02x", errTxType, data[0])
	}
}

func decodeLegacyTx(data []byte) (*Transaction, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	tx := &Transaction{Type: LegacyTxType}
	var err error
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.GasPrice, err = s.BigInt(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = readRecipient(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.BigInt(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if err := readSignature(s, tx); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return tx, s.Done()
}

func decodeTypedTx(typ byte, body []byte) (*Transaction, error) {
	s := rlp.NewStreamFromBytes(body)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	tx := &Transaction{Type: typ}
	var err error
	if tx.ChainID, err = s.BigInt(); err != nil {
		return nil, err
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if typ == DynamicFeeTxType {
		if tx.GasTipCap, err = s.BigInt(); err != nil {
			return nil, err
		}
		if tx.GasFeeCap, err = s.BigInt(); err != nil {
			return nil, err
		}
	} else if tx.GasPrice, err = s.BigInt(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = readRecipient(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.BigInt(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if tx.AccessList, err = readAccessList(s); err != nil {
		return nil, err
	}
	if err := readSignature(s, tx); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return tx, s.Done()
}

func readSignature(s *rlp.Stream, tx *Transaction) error {
	var err error
	if tx.V, err = s.BigInt(); err != nil {
		return err
	}
	if tx.R, err = s.BigInt(); err != nil {
		return err
	}
	tx.S, err = s.BigInt()
	return err
}

func readAccessList(s *rlp.Stream) (AccessList, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	var al AccessList
	for !s.AtListEnd() {
		if _, err := s.List(); err != nil {
			return nil, err
		}
		var t AccessTuple
		if err := readAddress(s, &t.Address); err != nil {
			return nil, err
		}
		if _, err := s.List(); err != nil {
			return nil, err
		}
		for !s.AtListEnd() {
			var key Hash
			if err := readHash(s, &key); err != nil {
				return nil, err
			}
			t.StorageKeys = append(t.StorageKeys, key)
		}
		if err := s.ListEnd(); err != nil {
			return nil, err
		}
		if err := s.ListEnd(); err != nil {
			return nil, err
		}
		al = append(al, t)
	}
	return al, s.ListEnd()
}
