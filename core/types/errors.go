package types

import (
	"errors"
	"fmt"

	"github.com/eth2030/xcall/rlp"
)

// ErrCodec is returned, wrapped with context, for every malformed header,
// transaction, receipt or log encoding.
var ErrCodec = errors.New("codec error")

func codecErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCodec, what, err)
}

func readHash(s *rlp.Stream, h *Hash) error {
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(b) != HashLength {
		return fmt.Errorf("hash length %d", len(b))
	}
	copy(h[:], b)
	return nil
}

func readAddress(s *rlp.Stream, a *Address) error {
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(b) != AddressLength {
		return fmt.Errorf("address length %d", len(b))
	}
	copy(a[:], b)
	return nil
}

// readRecipient reads a transaction's "to" field, where the empty string
// denotes contract creation.
func readRecipient(s *rlp.Stream) (*Address, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	switch len(b) {
	case 0:
		return nil, nil
	case AddressLength:
		a := BytesToAddress(b)
		return &a, nil
	default:
		return nil, fmt.Errorf("recipient length %d", len(b))
	}
}

func encodeRecipient(to *Address) []byte {
	if to == nil {
		return rlp.EmptyString
	}
	return rlp.EncodeBytes(to[:])
}
