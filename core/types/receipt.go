package types

import (
	"fmt"

	"github.com/eth2030/xcall/rlp"
)

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt holds the consensus fields of a transaction receipt.
type Receipt struct {
	Type              uint8
	PostState         []byte // pre-Byzantium intermediate state root
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log
}

// NewReceipt creates a receipt with the bloom derived from logs.
func NewReceipt(status, cumulativeGasUsed uint64, logs []*Log) *Receipt {
	return &Receipt{
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
		Bloom:             LogsBloom(logs),
		Logs:              logs,
	}
}

// Succeeded reports whether the receipt carries a success status. Receipts
// with a post-state root instead of a status never count as successful.
func (r *Receipt) Succeeded() bool {
	return len(r.PostState) == 0 && r.Status == ReceiptStatusSuccessful
}

// EncodeRLP returns the consensus encoding
// [status, cumulativeGasUsed, bloom, [logs...]], prefixed with the type byte
// for typed receipts. This is the value stored in the receipt trie.
func (r *Receipt) EncodeRLP() []byte {
	var status []byte
	switch {
	case len(r.PostState) > 0:
		status = rlp.EncodeBytes(r.PostState)
	case r.Status == ReceiptStatusSuccessful:
		status = []byte{0x01}
	default:
		status = rlp.EmptyString
	}
	logs := make([][]byte, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = l.EncodeRLP()
	}
	body := rlp.EncodeList(
		status,
		rlp.EncodeUint64(r.CumulativeGasUsed),
		rlp.EncodeBytes(r.Bloom[:]),
		rlp.EncodeList(logs...),
	)
	if r.Type == LegacyTxType {
		return body
	}
	return append([]byte{r.Type}, body...)
}

// DecodeReceipt decodes a receipt from its consensus encoding. A single
// 0x00 byte is accepted as a failure status alongside the canonical empty
// string. Errors wrap ErrCodec.
func DecodeReceipt(data []byte) (*Receipt, error) {
	r, err := decodeReceipt(data)
	if err != nil {
		return nil, codecErr("receipt", err)
	}
	return r, nil
}

func decodeReceipt(data []byte) (*Receipt, error) {
	if len(data) == 0 {
		return nil, rlp.ErrExpectedList
	}
	r := new(Receipt)
	if data[0] < 0xc0 {
		if data[0] != AccessListTxType && data[0] != DynamicFeeTxType {
			return nil, fmt.Errorf("%w: 0x%02x", errTxType, data[0])
		}
		r.Type = data[0]
		data = data[1:]
	}
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	status, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	switch {
	case len(status) == 0:
		r.Status = ReceiptStatusFailed
	case len(status) == 1 && status[0] == 0x01:
		r.Status = ReceiptStatusSuccessful
	case len(status) == 1 && status[0] == 0x00:
		r.Status = ReceiptStatusFailed
	case len(status) == HashLength:
		r.PostState = status
		r.Status = ReceiptStatusFailed
	default:
		return nil, fmt.Errorf("invalid status field %x", status)
	}
	if r.CumulativeGasUsed, err = s.Uint64(); err != nil {
		return nil, err
	}
	bloom, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(bloom) != BloomLength {
		return nil, fmt.Errorf("bloom length %d", len(bloom))
	}
	copy(r.Bloom[:], bloom)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	for !s.AtListEnd() {
		l, err := readLog(s)
		if err != nil {
			return nil, err
		}
		r.Logs = append(r.Logs, l)
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return r, s.Done()
}
