package rawdb

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/rlp"
)

// CallState is the lifecycle tag of a call on its proxy.
type CallState byte

const (
	CallUnknown CallState = iota
	CallPrepared
	CallRequested
)

func (s CallState) String() string {
	switch s {
	case CallUnknown:
		return "unknown"
	case CallPrepared:
		return "prepared"
	case CallRequested:
		return "requested"
	default:
		return fmt.Sprintf("CallState(%d)", byte(s))
	}
}

// PendingCall is a call staged on a proxy. It is kept after the request so
// the acknowledgement can reach the caller's callback.
type PendingCall struct {
	Caller         types.Address
	RemoteServer   types.Address
	Contract       types.Address
	DappSpecificID []byte
	CallData       []byte
	Callback       string
}

// EncodeRLP returns
// [caller, remoteServer, contract, dappSpecificId, callData, callback].
func (c *PendingCall) EncodeRLP() []byte {
	return rlp.EncodeList(
		rlp.EncodeBytes(c.Caller[:]),
		rlp.EncodeBytes(c.RemoteServer[:]),
		rlp.EncodeBytes(c.Contract[:]),
		rlp.EncodeBytes(c.DappSpecificID),
		rlp.EncodeBytes(c.CallData),
		rlp.EncodeBytes([]byte(c.Callback)),
	)
}

func decodePendingCall(data []byte) (*PendingCall, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	c := new(PendingCall)
	for _, a := range []*types.Address{&c.Caller, &c.RemoteServer, &c.Contract} {
		if err := readAddress(s, a); err != nil {
			return nil, err
		}
	}
	var err error
	if c.DappSpecificID, err = s.Bytes(); err != nil {
		return nil, err
	}
	if c.CallData, err = s.Bytes(); err != nil {
		return nil, err
	}
	cb, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	c.Callback = string(cb)
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return c, s.Done()
}

// Acknowledgement records the outcome proven back to a proxy.
type Acknowledgement struct {
	Success    bool
	HeaderHash types.Hash // target-chain block holding the execution
}

func (a *Acknowledgement) encode() []byte {
	return rlp.EncodeList(rlp.EncodeBool(a.Success), rlp.EncodeBytes(a.HeaderHash[:]))
}

func decodeAcknowledgement(data []byte) (*Acknowledgement, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	a := new(Acknowledgement)
	var err error
	if a.Success, err = s.Bool(); err != nil {
		return nil, err
	}
	if err := readHash(s, &a.HeaderHash); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return a, s.Done()
}

// Registration binds a source-chain proxy to the relay that vouches for
// its chain.
type Registration struct {
	Relay         types.Address
	Confirmations uint64
	ChainID       uint64
}

func (r *Registration) encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeBytes(r.Relay[:]),
		rlp.EncodeUint64(r.Confirmations),
		rlp.EncodeUint64(r.ChainID),
	)
}

func decodeRegistration(data []byte) (*Registration, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	r := new(Registration)
	if err := readAddress(s, &r.Relay); err != nil {
		return nil, err
	}
	var err error
	if r.Confirmations, err = s.Uint64(); err != nil {
		return nil, err
	}
	if r.ChainID, err = s.Uint64(); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return r, s.Done()
}

// ExecutionRecord marks a request as executed on a server.
type ExecutionRecord struct {
	Proxy      types.Address
	CallID     *uint256.Int
	Success    bool
	HeaderHash types.Hash // source-chain block holding the request
}

func (e *ExecutionRecord) encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeBytes(e.Proxy[:]),
		rlp.EncodeBigInt(e.CallID.ToBig()),
		rlp.EncodeBool(e.Success),
		rlp.EncodeBytes(e.HeaderHash[:]),
	)
}

func decodeExecutionRecord(data []byte) (*ExecutionRecord, error) {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	e := new(ExecutionRecord)
	if err := readAddress(s, &e.Proxy); err != nil {
		return nil, err
	}
	id, err := s.BigInt()
	if err != nil {
		return nil, err
	}
	var overflow bool
	if e.CallID, overflow = uint256.FromBig(id); overflow {
		return nil, fmt.Errorf("rawdb: callId overflows 256 bits")
	}
	if e.Success, err = s.Bool(); err != nil {
		return nil, err
	}
	if err := readHash(s, &e.HeaderHash); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return e, s.Done()
}

func readAddress(s *rlp.Stream, a *types.Address) error {
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(b) != types.AddressLength {
		return fmt.Errorf("rawdb: address has %d bytes", len(b))
	}
	copy(a[:], b)
	return nil
}

func readHash(s *rlp.Stream, h *types.Hash) error {
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(b) != types.HashLength {
		return fmt.Errorf("rawdb: hash has %d bytes", len(b))
	}
	copy(h[:], b)
	return nil
}
