package xcall

import (
	"fmt"

	"github.com/eth2030/xcall/rlp"
)

// Proof is the cross-chain wire format: a block header, one transaction
// and its receipt, the transaction's index key and the trie nodes proving
// both under the header's roots. It is transient and never stored.
type Proof struct {
	Header       []byte   // RLP header
	Tx           []byte   // consensus encoding of the transaction
	Receipt      []byte   // consensus encoding of the receipt
	Path         []byte   // RLP of the transaction index
	TxNodes      [][]byte // transaction trie proof, root first
	ReceiptNodes [][]byte // receipt trie proof, root first
}

// NodeCount returns the number of trie nodes carried by the proof.
func (p *Proof) NodeCount() int {
	return len(p.TxNodes) + len(p.ReceiptNodes)
}

// Encode returns the RLP list
// [header, tx, receipt, path, [txNodes...], [receiptNodes...]].
func (p *Proof) Encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeBytes(p.Header),
		rlp.EncodeBytes(p.Tx),
		rlp.EncodeBytes(p.Receipt),
		rlp.EncodeBytes(p.Path),
		rlp.EncodeBytesList(p.TxNodes),
		rlp.EncodeBytesList(p.ReceiptNodes),
	)
}

// DecodeProof parses the output of Proof.Encode. Errors wrap ErrCodec.
func DecodeProof(data []byte) (*Proof, error) {
	p, err := decodeProof(data)
	if err != nil {
		return nil, fmt.Errorf("%w: proof: %w", ErrCodec, err)
	}
	return p, nil
}

func decodeProof(data []byte) (*Proof, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	p := new(Proof)
	for _, f := range []*[]byte{&p.Header, &p.Tx, &p.Receipt, &p.Path} {
		b, err := s.Bytes()
		if err != nil {
			return nil, err
		}
		*f = b
	}
	for _, f := range []*[][]byte{&p.TxNodes, &p.ReceiptNodes} {
		if _, err := s.List(); err != nil {
			return nil, err
		}
		for !s.AtListEnd() {
			n, err := s.Bytes()
			if err != nil {
				return nil, err
			}
			*f = append(*f, n)
		}
		if err := s.ListEnd(); err != nil {
			return nil, err
		}
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return p, s.Done()
}
