package rlp

import (
	"io"
	"math/big"
)

// Kind represents the type of an RLP value.
type Kind int

const (
	Byte   Kind = iota // Single byte in [0x00, 0x7f].
	String             // RLP string (including empty string).
	List               // RLP list.
)

func (k Kind) String() string {
	switch k {
	case Byte:
		return "Byte"
	case String:
		return "String"
	case List:
		return "List"
	default:
		return "Unknown"
	}
}

// Split returns the kind of the first item in b, its content and the bytes
// following it. For single-byte items the content is the byte itself.
func Split(b []byte) (k Kind, content, rest []byte, err error) {
	k, tagSize, contentSize, err := readHeader(b)
	if err != nil {
		return 0, nil, b, err
	}
	if k == Byte {
		return Byte, b[:1], b[1:], nil
	}
	end := tagSize + contentSize
	return k, b[tagSize:end], b[end:], nil
}

// SplitString splits b into the content of a string item and the remaining bytes.
func SplitString(b []byte) (content, rest []byte, err error) {
	k, content, rest, err := Split(b)
	if err != nil {
		return nil, b, err
	}
	if k == List {
		return nil, b, ErrExpectedString
	}
	return content, rest, nil
}

// SplitList splits b into the content of a list item and the remaining bytes.
func SplitList(b []byte) (content, rest []byte, err error) {
	k, content, rest, err := Split(b)
	if err != nil {
		return nil, b, err
	}
	if k != List {
		return nil, b, ErrExpectedList
	}
	return content, rest, nil
}

// ListElems returns the raw encodings of the elements of the list encoded in
// b. The list must be the only value in b.
func ListElems(b []byte) ([][]byte, error) {
	content, rest, err := SplitList(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrMoreThanOneValue
	}
	var elems [][]byte
	for len(content) > 0 {
		_, _, tail, err := Split(content)
		if err != nil {
			return nil, err
		}
		elems = append(elems, content[:len(content)-len(tail)])
		content = tail
	}
	return elems, nil
}

// readHeader parses the prefix of the first item in b. It validates that the
// declared content fits inside b and that the size is canonically encoded.
func readHeader(b []byte) (k Kind, tagSize, contentSize uint64, err error) {
	if len(b) == 0 {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}
	prefix := b[0]
	switch {
	case prefix < 0x80:
		return Byte, 0, 1, nil
	case prefix <= 0xb7:
		k, tagSize, contentSize = String, 1, uint64(prefix-0x80)
	case prefix < 0xc0:
		k = String
		tagSize, contentSize, err = readLongSize(b, int(prefix-0xb7))
	case prefix <= 0xf7:
		k, tagSize, contentSize = List, 1, uint64(prefix-0xc0)
	default:
		k = List
		tagSize, contentSize, err = readLongSize(b, int(prefix-0xf7))
	}
	if err != nil {
		return 0, 0, 0, err
	}
	if contentSize > uint64(len(b))-tagSize {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}
	// A single byte below 0x80 must be encoded as itself.
	if k == String && tagSize == 1 && contentSize == 1 && b[1] < 0x80 {
		return 0, 0, 0, ErrCanonSize
	}
	return k, tagSize, contentSize, nil
}

func readLongSize(b []byte, lenOfLen int) (tagSize, size uint64, err error) {
	if lenOfLen > 8 {
		return 0, 0, ErrValueTooLarge
	}
	if len(b) < 1+lenOfLen {
		return 0, 0, io.ErrUnexpectedEOF
	}
	if b[1] == 0 {
		return 0, 0, ErrCanonSize
	}
	size = readBigEndian(b[1 : 1+lenOfLen])
	if size <= 55 {
		return 0, 0, ErrCanonSize
	}
	return uint64(1 + lenOfLen), size, nil
}

func readBigEndian(b []byte) uint64 {
	var val uint64
	for _, x := range b {
		val = (val << 8) | uint64(x)
	}
	return val
}

// Stream provides sequential access to the items of an RLP-encoded buffer.
// List and ListEnd scope reads to the content of nested lists.
type Stream struct {
	data  []byte
	pos   int
	stack []int // exclusive end offsets of the open lists
}

// NewStreamFromBytes creates a stream reading from b. The stream does not
// copy b; returned byte slices alias it.
func NewStreamFromBytes(b []byte) *Stream {
	return &Stream{data: b}
}

func (s *Stream) limit() int {
	if len(s.stack) > 0 {
		return s.stack[len(s.stack)-1]
	}
	return len(s.data)
}

// Kind returns the kind and content size of the next item without consuming it.
func (s *Stream) Kind() (Kind, uint64, error) {
	if s.pos >= s.limit() {
		return 0, 0, io.EOF
	}
	k, _, size, err := readHeader(s.data[s.pos:s.limit()])
	return k, size, err
}

func (s *Stream) next() (Kind, []byte, []byte, error) {
	lim := s.limit()
	if s.pos >= lim {
		return 0, nil, nil, io.EOF
	}
	k, content, rest, err := Split(s.data[s.pos:lim])
	if err != nil {
		return 0, nil, nil, err
	}
	end := lim - len(rest)
	raw := s.data[s.pos:end]
	s.pos = end
	return k, content, raw, nil
}

// Raw reads the next item and returns its complete encoding.
func (s *Stream) Raw() ([]byte, error) {
	_, _, raw, err := s.next()
	return raw, err
}

// Bytes reads the next item, which must be a string, and returns its content.
func (s *Stream) Bytes() ([]byte, error) {
	lim := s.limit()
	if s.pos < lim {
		if k, _, _, err := readHeader(s.data[s.pos:lim]); err == nil && k == List {
			return nil, ErrExpectedString
		}
	}
	_, content, _, err := s.next()
	return content, err
}

// Uint64 reads a canonically encoded unsigned integer of at most 8 bytes.
func (s *Stream) Uint64() (uint64, error) {
	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, ErrUint64Range
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, ErrCanonInt
	}
	return readBigEndian(b), nil
}

// BigInt reads a canonically encoded non-negative big integer.
func (s *Stream) BigInt() (*big.Int, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b) > 0 && b[0] == 0 {
		return nil, ErrCanonInt
	}
	return new(big.Int).SetBytes(b), nil
}

// Bool reads 0x01 as true and the empty string as false.
func (s *Stream) Bool() (bool, error) {
	b, err := s.Uint64()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrCanonInt
	}
}

// List enters the next item, which must be a list, and returns its content
// size. Reads are confined to the list until ListEnd is called.
func (s *Stream) List() (uint64, error) {
	lim := s.limit()
	if s.pos >= lim {
		return 0, io.EOF
	}
	k, tagSize, size, err := readHeader(s.data[s.pos:lim])
	if err != nil {
		return 0, err
	}
	if k != List {
		return 0, ErrExpectedList
	}
	start := s.pos + int(tagSize)
	s.stack = append(s.stack, start+int(size))
	s.pos = start
	return size, nil
}

// ListEnd leaves the current list. All of its items must have been read.
func (s *Stream) ListEnd() error {
	if len(s.stack) == 0 {
		return ErrExpectedList
	}
	if s.pos != s.stack[len(s.stack)-1] {
		return ErrEOL
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

// AtListEnd reports whether every item of the current list (or of the
// whole input at top level) has been read.
func (s *Stream) AtListEnd() bool {
	return s.pos >= s.limit()
}

// Done verifies that the input was consumed exactly: no list is left open
// and no bytes trail the last top-level item.
func (s *Stream) Done() error {
	if len(s.stack) != 0 {
		return ErrEOL
	}
	if s.pos != len(s.data) {
		return ErrMoreThanOneValue
	}
	return nil
}
