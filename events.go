package xcall

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/xcall/core/types"
)

// Event identifiers (topic 0) of the registry events.
var (
	CallPreparedID     = eventID(ProxyABI, "CallPrepared")
	CallRequestedID    = eventID(ProxyABI, "CallRequested")
	CallAcknowledgedID = eventID(ProxyABI, "CallAcknowledged")
	CallExecutedID     = eventID(ServerABI, "CallExecuted")
)

// CallPrepared is emitted by the proxy when a call is staged.
type CallPrepared struct {
	CallID *uint256.Int
}

// CallRequested is emitted by the proxy when a staged call is released.
// The transaction carrying it is what the server later verifies.
type CallRequested struct {
	CallID         *uint256.Int
	Caller         types.Address
	RemoteServer   types.Address
	RemoteContract types.Address
	CallData       []byte
}

// CallExecuted is emitted by the server after performing a remote call.
type CallExecuted struct {
	CallID         *uint256.Int
	RemoteRPCProxy types.Address
	Success        bool
	Data           []byte
}

// CallAcknowledged is emitted by the proxy when an execution is proven back.
type CallAcknowledged struct {
	CallID  *uint256.Int
	Success bool
}

func packLog(emitter types.Address, a abi.ABI, name string, args ...any) *types.Log {
	ev := a.Events[name]
	data, err := ev.Inputs.Pack(args...)
	if err != nil {
		// Argument types are fixed by the event structs.
		panic(fmt.Sprintf("xcall: pack %s: %v", name, err))
	}
	return &types.Log{Address: emitter, Topics: []types.Hash{types.Hash(ev.ID)}, Data: data}
}

func unpackLog(l *types.Log, a abi.ABI, name string) ([]any, error) {
	ev := a.Events[name]
	if len(l.Topics) == 0 || l.Topics[0] != types.Hash(ev.ID) {
		return nil, fmt.Errorf("%w: log is not %s", ErrCodec, name)
	}
	vals, err := ev.Inputs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCodec, name, err)
	}
	return vals, nil
}

// ToLog encodes the event as a log emitted by emitter.
func (e *CallPrepared) ToLog(emitter types.Address) *types.Log {
	return packLog(emitter, ProxyABI, "CallPrepared", e.CallID.ToBig())
}

// ToLog encodes the event as a log emitted by emitter.
func (e *CallRequested) ToLog(emitter types.Address) *types.Log {
	return packLog(emitter, ProxyABI, "CallRequested", e.CallID.ToBig(),
		gethcommon.Address(e.Caller), gethcommon.Address(e.RemoteServer),
		gethcommon.Address(e.RemoteContract), e.CallData)
}

// ToLog encodes the event as a log emitted by emitter.
func (e *CallExecuted) ToLog(emitter types.Address) *types.Log {
	return packLog(emitter, ServerABI, "CallExecuted", e.CallID.ToBig(),
		gethcommon.Address(e.RemoteRPCProxy), e.Success, e.Data)
}

// ToLog encodes the event as a log emitted by emitter.
func (e *CallAcknowledged) ToLog(emitter types.Address) *types.Log {
	return packLog(emitter, ProxyABI, "CallAcknowledged", e.CallID.ToBig(), e.Success)
}

func toU256(v any) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: callId has type %T", ErrCodec, v)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: callId overflows 256 bits", ErrCodec)
	}
	return u, nil
}

// ParseCallPrepared decodes a CallPrepared log.
func ParseCallPrepared(l *types.Log) (*CallPrepared, error) {
	vals, err := unpackLog(l, ProxyABI, "CallPrepared")
	if err != nil {
		return nil, err
	}
	id, err := toU256(vals[0])
	if err != nil {
		return nil, err
	}
	return &CallPrepared{CallID: id}, nil
}

// ParseCallRequested decodes a CallRequested log.
func ParseCallRequested(l *types.Log) (*CallRequested, error) {
	vals, err := unpackLog(l, ProxyABI, "CallRequested")
	if err != nil {
		return nil, err
	}
	id, err := toU256(vals[0])
	if err != nil {
		return nil, err
	}
	return &CallRequested{
		CallID:         id,
		Caller:         types.Address(vals[1].(gethcommon.Address)),
		RemoteServer:   types.Address(vals[2].(gethcommon.Address)),
		RemoteContract: types.Address(vals[3].(gethcommon.Address)),
		CallData:       vals[4].([]byte),
	}, nil
}

// ParseCallExecuted decodes a CallExecuted log.
func ParseCallExecuted(l *types.Log) (*CallExecuted, error) {
	vals, err := unpackLog(l, ServerABI, "CallExecuted")
	if err != nil {
		return nil, err
	}
	id, err := toU256(vals[0])
	if err != nil {
		return nil, err
	}
	return &CallExecuted{
		CallID:         id,
		RemoteRPCProxy: types.Address(vals[1].(gethcommon.Address)),
		Success:        vals[2].(bool),
		Data:           vals[3].([]byte),
	}, nil
}

// ParseCallAcknowledged decodes a CallAcknowledged log.
func ParseCallAcknowledged(l *types.Log) (*CallAcknowledged, error) {
	vals, err := unpackLog(l, ProxyABI, "CallAcknowledged")
	if err != nil {
		return nil, err
	}
	id, err := toU256(vals[0])
	if err != nil {
		return nil, err
	}
	return &CallAcknowledged{CallID: id, Success: vals[1].(bool)}, nil
}

// FindLog returns the first log in logs emitted by emitter with topic 0
// equal to id, or nil.
func FindLog(logs []*types.Log, emitter types.Address, id types.Hash) *types.Log {
	for _, l := range logs {
		if l.Address == emitter && len(l.Topics) > 0 && l.Topics[0] == id {
			return l
		}
	}
	return nil
}

// FindLogs returns every log in logs emitted by emitter with topic 0 equal
// to id, in receipt order.
func FindLogs(logs []*types.Log, emitter types.Address, id types.Hash) []*types.Log {
	var out []*types.Log
	for _, l := range logs {
		if l.Address == emitter && len(l.Topics) > 0 && l.Topics[0] == id {
			out = append(out, l)
		}
	}
	return out
}
