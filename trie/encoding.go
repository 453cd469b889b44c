package trie

import "errors"

// Hex-prefix (HP) encoding as specified in the Ethereum Yellow Paper, Appendix C.
//
// Keys are walked as nibble sequences. A terminator nibble (16) marks the
// end of a leaf key so that leaf and extension paths can share the decoder.

const terminatorByte = 16

var errCompactKey = errors.New("invalid hex-prefix key")

// keybytesToHex converts a raw byte key to a hex nibble sequence, appending
// the terminator nibble.
func keybytesToHex(str []byte) []byte {
	l := len(str)*2 + 1
	nibbles := make([]byte, l)
	for i, b := range str {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}
	nibbles[l-1] = terminatorByte
	return nibbles
}

// compactToHex converts a hex-prefix encoded path back to nibbles. Leaf
// paths get the terminator appended. The flag nibble and the padding
// nibble of even-length paths are validated.
func compactToHex(compact []byte) ([]byte, error) {
	if len(compact) == 0 {
		return nil, errCompactKey
	}
	flags := compact[0] >> 4
	if flags > 3 {
		return nil, errCompactKey
	}
	odd := flags&1 == 1
	leaf := flags&2 == 2
	if !odd && compact[0]&0x0f != 0 {
		return nil, errCompactKey
	}

	nibbles := make([]byte, 0, len(compact)*2)
	if odd {
		nibbles = append(nibbles, compact[0]&0x0f)
	}
	for _, b := range compact[1:] {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	if leaf {
		nibbles = append(nibbles, terminatorByte)
	}
	return nibbles, nil
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for ; i < n; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// hasTerm returns true if the hex nibble sequence ends with the terminator.
func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminatorByte
}
