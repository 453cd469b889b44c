package rlp

import "errors"

var (
	// ErrExpectedString is returned when a list is encountered where a string was expected.
	ErrExpectedString = errors.New("rlp: expected string")

	// ErrExpectedList is returned when a string is encountered where a list was expected.
	ErrExpectedList = errors.New("rlp: expected list")

	// ErrCanonSize is returned when an item uses a non-canonical size encoding.
	ErrCanonSize = errors.New("rlp: non-canonical size information")

	// ErrCanonInt is returned when an integer uses non-canonical encoding (leading zeros).
	ErrCanonInt = errors.New("rlp: non-canonical integer encoding")

	// ErrEOL is returned when a list is closed before all of its items were read.
	ErrEOL = errors.New("rlp: end of list not reached")

	// ErrUint64Range is returned when a decoded integer exceeds uint64 range.
	ErrUint64Range = errors.New("rlp: uint64 overflow")

	// ErrValueTooLarge is returned when a size prefix does not fit in 64 bits.
	ErrValueTooLarge = errors.New("rlp: value size exceeds limits")

	// ErrMoreThanOneValue is returned when input has trailing data after the top-level item.
	ErrMoreThanOneValue = errors.New("rlp: input contains more than one value")
)
