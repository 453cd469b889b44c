// Package server implements the execution registry on the target chain.
// It authenticates call requests proven from registered proxies, executes
// each one at most once and reports the outcome as a CallExecuted event
// that the proxy can later verify.
package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/rawdb"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/crypto"
	"github.com/eth2030/xcall/gas"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/metrics"
	"github.com/eth2030/xcall/relay"
)

// ErrChainIDChanged is returned when a re-registration would move a proxy
// to another chain id.
var ErrChainIDChanged = errors.New("server: registered chain id cannot change")

// Server is an execution registry.
type Server struct {
	cfg     Config
	db      rawdb.Database
	relays  relay.Directory
	invoker xcall.Invoker
	log     *log.Logger

	mu sync.Mutex
}

// New creates a registry storing its state in db. Relay addresses of
// registrations are resolved through relays; remote calls go through
// invoker.
func New(cfg Config, db rawdb.Database, relays relay.Directory, invoker xcall.Invoker, logger *log.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:     cfg,
		db:      db,
		relays:  relays,
		invoker: invoker,
		log:     logger.Module("server").With("address", cfg.Address),
	}, nil
}

// Address returns the registry's address.
func (s *Server) Address() types.Address { return s.cfg.Address }

// RequestID derives the replay key of a request: keccak(chainId ‖ proxy ‖ callId).
func RequestID(chainID uint64, proxy types.Address, callID *uint256.Int) types.Hash {
	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], chainID)
	id := callID.Bytes32()
	return crypto.Keccak256Hash(chain[:], proxy[:], id[:])
}

// RegisterProxy accepts requests from proxy, verified with the relay at
// relayAddr. Only the owner may register. Re-registering replaces the relay
// and confirmations but must keep the chain id, which keys the replay guard.
func (s *Server) RegisterProxy(_ context.Context, f *xcall.Frame, proxy, relayAddr types.Address, pc ProxyConfig) error {
	if f.Sender != s.cfg.Owner {
		return fmt.Errorf("%w: %s is not the owner", xcall.ErrUnauthorized, f.Sender)
	}
	if _, ok := s.relays.Oracle(relayAddr); !ok {
		return fmt.Errorf("%w: %s", xcall.ErrUnknownRelay, relayAddr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, err := rawdb.ReadRegistration(s.db, s.cfg.Address, proxy)
	switch {
	case err == nil && prev.ChainID != pc.ChainID:
		return fmt.Errorf("%w: %s is registered for chain %d", ErrChainIDChanged, proxy, prev.ChainID)
	case err != nil && !errors.Is(err, rawdb.ErrNotFound):
		return err
	}
	reg := &rawdb.Registration{Relay: relayAddr, Confirmations: pc.Confirmations, ChainID: pc.ChainID}
	if err := rawdb.WriteRegistration(s.db, s.cfg.Address, proxy, reg); err != nil {
		return err
	}
	s.log.Info("proxy registered", "proxy", proxy, "relay", relayAddr, "confirmations", pc.Confirmations, "chainId", pc.ChainID)
	return nil
}

// ExecuteCall accepts a proof of a proxy's CallRequested transaction,
// marks the request executed and invokes the remote contract. A failing
// remote contract is reported in the emitted event, not as an error.
func (s *Server) ExecuteCall(ctx context.Context, f *xcall.Frame, proofData []byte) error {
	err := s.execute(ctx, f, proofData)
	if err != nil {
		metrics.ServerRejected.Inc()
		s.log.Warn("execution rejected", "sender", f.Sender, "err", err)
	}
	return err
}

func (s *Server) execute(ctx context.Context, f *xcall.Frame, proofData []byte) error {
	proof, err := xcall.DecodeProof(proofData)
	if err != nil {
		return err
	}
	tx, err := types.DecodeTransaction(proof.Tx)
	if err != nil {
		return err
	}
	if tx.To == nil {
		return fmt.Errorf("%w: request tx creates a contract", xcall.ErrIllegalProxyAddress)
	}
	proxy := *tx.To
	reg, err := s.Registration(proxy)
	if err != nil {
		return err
	}
	oracle, ok := s.relays.Oracle(reg.Relay)
	if !ok {
		return fmt.Errorf("%w: %s for proxy %s", xcall.ErrUnknownRelay, reg.Relay, proxy)
	}

	meter := gas.NewMeter(f.Gas)
	if err := meter.Charge(s.cfg.Gas.VerificationCost(proof.NodeCount()), "proof verification"); err != nil {
		return err
	}
	inc, err := xcall.Verifier{Oracle: oracle, Confirmations: reg.Confirmations}.Verify(ctx, proof)
	if err != nil {
		return err
	}
	if !inc.Receipt.Succeeded() {
		return fmt.Errorf("%w: request tx %s reverted", xcall.ErrFailedCallRequest, inc.Tx.Hash())
	}
	l := xcall.FindLog(inc.Receipt.Logs, proxy, xcall.CallRequestedID)
	if l == nil {
		return fmt.Errorf("%w: no CallRequested log from %s", xcall.ErrNonExistentCallExecution, proxy)
	}
	req, err := xcall.ParseCallRequested(l)
	if err != nil {
		return err
	}
	if req.RemoteServer != s.cfg.Address {
		return fmt.Errorf("%w: request targets %s", xcall.ErrIncorrectServer, req.RemoteServer)
	}

	requestID := RequestID(reg.ChainID, proxy, req.CallID)
	s.mu.Lock()
	forward, err := s.commitExecution(meter, requestID, proxy, req.CallID, inc.HeaderHash)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	ok, ret := s.invoker.Invoke(ctx, s.cfg.Address, req.RemoteContract, req.CallData, forward)
	if !ok {
		metrics.ServerRemoteFailed.Inc()
	}
	record := &rawdb.ExecutionRecord{Proxy: proxy, CallID: req.CallID, Success: ok, HeaderHash: inc.HeaderHash}
	if err := rawdb.WriteExecutionRecord(s.db, s.cfg.Address, requestID, record); err != nil {
		return err
	}

	f.Emit((&xcall.CallExecuted{CallID: req.CallID, RemoteRPCProxy: proxy, Success: ok, Data: ret}).ToLog(s.cfg.Address))
	metrics.ServerExecuted.Inc()
	s.log.Debug("call executed", "proxy", proxy, "callId", req.CallID, "contract", req.RemoteContract, "success", ok)
	return nil
}

// commitExecution checks the request has not run and the budget covers
// the remote call, then marks it executed. It returns the budget to
// forward.
func (s *Server) commitExecution(meter *gas.Meter, requestID types.Hash, proxy types.Address, callID *uint256.Int, header types.Hash) (uint64, error) {
	done, err := rawdb.HasExecutionRecord(s.db, s.cfg.Address, requestID)
	if err != nil {
		return 0, err
	}
	if done {
		return 0, fmt.Errorf("%w: call %s from %s", xcall.ErrMultipleExecution, callID, proxy)
	}
	if err := s.cfg.Gas.Check(meter.Remaining(), s.cfg.MinCallGas); err != nil {
		return 0, err
	}
	record := &rawdb.ExecutionRecord{Proxy: proxy, CallID: callID, HeaderHash: header}
	if err := rawdb.WriteExecutionRecord(s.db, s.cfg.Address, requestID, record); err != nil {
		return 0, err
	}
	return s.cfg.Gas.Forwardable(meter.Remaining()), nil
}

// Registration returns the registration of proxy, failing with
// ErrIllegalProxyAddress when there is none.
func (s *Server) Registration(proxy types.Address) (*rawdb.Registration, error) {
	reg, err := rawdb.ReadRegistration(s.db, s.cfg.Address, proxy)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s is not registered", xcall.ErrIllegalProxyAddress, proxy)
	}
	return reg, err
}

// Proxies returns the registered proxy addresses in address order.
func (s *Server) Proxies() ([]types.Address, error) {
	var out []types.Address
	err := rawdb.IterateRegistrations(s.db, s.cfg.Address, func(p types.Address, _ *rawdb.Registration) bool {
		out = append(out, p)
		return true
	})
	return out, err
}

// Executed returns the execution record of callId from proxy, or nil if
// the call has not been executed.
func (s *Server) Executed(proxy types.Address, callID *uint256.Int) (*rawdb.ExecutionRecord, error) {
	reg, err := s.Registration(proxy)
	if err != nil {
		return nil, err
	}
	rec, err := rawdb.ReadExecutionRecord(s.db, s.cfg.Address, RequestID(reg.ChainID, proxy, callID))
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}
