// Package xcall holds what both registries share: the protocol errors, the
// contract ABI and events, the proof wire format with its verifier, and the
// execution frame a registry method runs in.
package xcall

import (
	"context"

	"github.com/eth2030/xcall/core/types"
)

// Frame is the execution context of one registry invocation: who called,
// the budget they supplied and the logs emitted so far. The host discards
// the logs of a failed invocation.
type Frame struct {
	Sender types.Address
	Gas    uint64
	logs   []*types.Log
}

// NewFrame creates a frame for a call from sender with budget gas.
func NewFrame(sender types.Address, gas uint64) *Frame {
	return &Frame{Sender: sender, Gas: gas}
}

// Emit records a log.
func (f *Frame) Emit(l *types.Log) {
	f.logs = append(f.logs, l)
}

// Logs returns the logs emitted in this frame.
func (f *Frame) Logs() []*types.Log {
	return f.logs
}

// Invoker performs a low-level call into an arbitrary contract. Callee
// failure is reported through ok rather than an error so the caller's own
// invocation is never unwound by it.
type Invoker interface {
	Invoke(ctx context.Context, from, to types.Address, input []byte, gas uint64) (ok bool, ret []byte)
}

// Contract is a registry or application contract reachable by ABI calls.
type Contract interface {
	Call(ctx context.Context, f *Frame, input []byte) ([]byte, error)
}
