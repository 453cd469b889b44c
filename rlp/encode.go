// Package rlp implements the Recursive Length Prefix encoding used by
// Ethereum-style chains for headers, transactions, receipts and trie nodes.
//
// Encoding is explicit: callers encode each field with the typed helpers
// and assemble lists with EncodeList, so that field order is always visible
// at the call site. Decoding goes through Stream or the Split helpers, both
// of which reject non-canonical input instead of guessing.
package rlp

import "math/big"

// EmptyString is the encoding of the empty byte string.
var EmptyString = []byte{0x80}

// EmptyList is the encoding of the empty list.
var EmptyList = []byte{0xc0}

// EncodeBytes returns the RLP encoding of b as a string item.
func EncodeBytes(b []byte) []byte {
	n := len(b)
	if n == 1 && b[0] <= 0x7f {
		return []byte{b[0]}
	}
	return appendHeader(make([]byte, 0, headerSize(n)+n), 0x80, uint64(n), b)
}

// EncodeUint64 returns the RLP encoding of u as a big-endian integer
// without leading zero bytes. Zero encodes as the empty string.
func EncodeUint64(u uint64) []byte {
	if u == 0 {
		return []byte{0x80}
	}
	if u < 0x80 {
		return []byte{byte(u)}
	}
	return EncodeBytes(putUintBigEndian(u))
}

// EncodeBigInt returns the RLP encoding of a non-negative big integer.
// A nil integer encodes as zero.
func EncodeBigInt(i *big.Int) []byte {
	if i == nil || i.Sign() == 0 {
		return []byte{0x80}
	}
	return EncodeBytes(i.Bytes())
}

// EncodeBool encodes true as 0x01 and false as the empty string.
func EncodeBool(b bool) []byte {
	if b {
		return []byte{0x01}
	}
	return []byte{0x80}
}

// EncodeList concatenates already-encoded items and wraps them in a list header.
func EncodeList(items ...[]byte) []byte {
	size := 0
	for _, it := range items {
		size += len(it)
	}
	payload := make([]byte, 0, size)
	for _, it := range items {
		payload = append(payload, it...)
	}
	return WrapList(payload)
}

// EncodeBytesList encodes each element of list as a string and wraps the
// result in a list header.
func EncodeBytesList(list [][]byte) []byte {
	items := make([][]byte, len(list))
	for i, b := range list {
		items[i] = EncodeBytes(b)
	}
	return EncodeList(items...)
}

// WrapList wraps an already-encoded RLP payload in a list header.
func WrapList(payload []byte) []byte {
	n := len(payload)
	return appendHeader(make([]byte, 0, headerSize(n)+n), 0xc0, uint64(n), payload)
}

// appendHeader appends the short or long form header for a string (base
// 0x80) or list (base 0xc0) of the given size, followed by payload.
func appendHeader(dst []byte, base byte, size uint64, payload []byte) []byte {
	if size <= 55 {
		dst = append(dst, base+byte(size))
	} else {
		lenBytes := putUintBigEndian(size)
		dst = append(dst, base+55+byte(len(lenBytes)))
		dst = append(dst, lenBytes...)
	}
	return append(dst, payload...)
}

func headerSize(n int) int {
	if n <= 55 {
		return 1
	}
	return 1 + len(putUintBigEndian(uint64(n)))
}

// putUintBigEndian encodes u as big-endian with no leading zeros.
func putUintBigEndian(u uint64) []byte {
	var buf [8]byte
	i := 8
	for u > 0 {
		i--
		buf[i] = byte(u)
		u >>= 8
	}
	if i == 8 {
		return []byte{0}
	}
	return append([]byte(nil), buf[i:]...)
}
