// Package gas computes the resource budgets the registries must hold
// before they verify a proof or forward a call to an untrusted contract.
//
// Forwarding follows the EIP-150 63/64 rule: a caller holding g can pass at
// most g - g/64 to a callee. A registry that wants the callee to receive
// forward therefore needs forward + forward/63 for the call itself plus a
// fixed reserve for its own bookkeeping and event.
package gas

import (
	"errors"
	"fmt"
	"math"
)

// CallGasFraction is the EIP-150 retention divisor.
const CallGasFraction = 64

// ErrInsufficientResources is returned when a caller supplied less budget
// than an operation requires.
var ErrInsufficientResources = errors.New("insufficient resources")

// Schedule holds the cost parameters of the registries.
type Schedule struct {
	ProofBase    uint64 // flat cost of verifying one proof
	ProofPerNode uint64 // cost per trie node walked
	Reserve      uint64 // kept back for state writes and event emission
}

// DefaultSchedule returns the schedule used when none is configured.
func DefaultSchedule() Schedule {
	return Schedule{
		ProofBase:    30_000,
		ProofPerNode: 2_500,
		Reserve:      20_000,
	}
}

// Validate checks that the schedule can be applied.
func (s Schedule) Validate() error {
	if s.ProofBase == 0 {
		return errors.New("gas: proof base cost must be non-zero")
	}
	return nil
}

// VerificationCost returns the cost of verifying a proof that carries
// nodes trie nodes in total.
func (s Schedule) VerificationCost(nodes int) uint64 {
	return safeAdd(s.ProofBase, safeMul(s.ProofPerNode, uint64(nodes)))
}

// Required returns the minimum budget from which forward can be passed to
// a callee under the 63/64 rule with Reserve left over.
func (s Schedule) Required(forward uint64) uint64 {
	if forward == 0 {
		return s.Reserve
	}
	return safeAdd(safeAdd(forward, (forward-1)/(CallGasFraction-1)), s.Reserve)
}

// Forwardable returns the largest amount a callee receives when the
// registry holds available and keeps Reserve back.
func (s Schedule) Forwardable(available uint64) uint64 {
	if available <= s.Reserve {
		return 0
	}
	callable := available - s.Reserve
	return callable - callable/CallGasFraction
}

// Check fails with ErrInsufficientResources if available cannot cover
// forwarding forward to a callee.
func (s Schedule) Check(available, forward uint64) error {
	if need := s.Required(forward); available < need {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientResources, available, need)
	}
	return nil
}

// Meter tracks the budget left during one registry operation.
type Meter struct {
	remaining uint64
	used      uint64
}

// NewMeter creates a meter holding budget.
func NewMeter(budget uint64) *Meter {
	return &Meter{remaining: budget}
}

// Charge deducts amount, failing without change if the budget is short.
func (m *Meter) Charge(amount uint64, what string) error {
	if m.remaining < amount {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientResources, what, amount, m.remaining)
	}
	m.remaining -= amount
	m.used += amount
	return nil
}

// Remaining returns the budget not yet charged.
func (m *Meter) Remaining() uint64 { return m.remaining }

// Used returns the total charged so far.
func (m *Meter) Used() uint64 { return m.used }

func safeAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func safeMul(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}
