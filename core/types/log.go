package types

import (
	"fmt"

	"github.com/eth2030/xcall/rlp"
)

// MaxTopicsPerLog is the maximum number of indexed topics in a single log
// (LOG0..LOG4).
const MaxTopicsPerLog = 4

// Log is an event emitted by a contract: the emitter, up to four indexed
// topics and unindexed data.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// EncodeRLP returns the consensus encoding [Address, [Topics...], Data].
func (l *Log) EncodeRLP() []byte {
	topics := make([][]byte, len(l.Topics))
	for i := range l.Topics {
		topics[i] = l.Topics[i][:]
	}
	return rlp.EncodeList(
		rlp.EncodeBytes(l.Address[:]),
		rlp.EncodeBytesList(topics),
		rlp.EncodeBytes(l.Data),
	)
}

func readLog(s *rlp.Stream) (*Log, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	l := new(Log)
	if err := readAddress(s, &l.Address); err != nil {
		return nil, err
	}
	if _, err := s.List(); err != nil {
		return nil, err
	}
	for !s.AtListEnd() {
		if len(l.Topics) == MaxTopicsPerLog {
			return nil, fmt.Errorf("more than %d topics", MaxTopicsPerLog)
		}
		var topic Hash
		if err := readHash(s, &topic); err != nil {
			return nil, err
		}
		l.Topics = append(l.Topics, topic)
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	var err error
	if l.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	return l, s.ListEnd()
}
