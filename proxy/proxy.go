// Package proxy implements the call registry on the source chain. It stages
// outbound calls, releases them as requests for the target chain's
// execution registry, and closes the loop when an execution is proven back.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/rawdb"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/gas"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/metrics"
)

// Proxy is a call registry. Each method runs as one atomic unit against
// the database; state is committed before any outbound invocation.
type Proxy struct {
	cfg      Config
	db       rawdb.Database
	invoker  xcall.Invoker
	verifier xcall.Verifier
	log      *log.Logger

	mu sync.Mutex
}

// New creates a registry storing its state in db. Callbacks are delivered
// through invoker.
func New(cfg Config, db rawdb.Database, invoker xcall.Invoker, logger *log.Logger) (*Proxy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Proxy{
		cfg:      cfg,
		db:       db,
		invoker:  invoker,
		verifier: xcall.Verifier{Oracle: cfg.Relay, Confirmations: cfg.Confirmations},
		log:      logger.Module("proxy").With("address", cfg.Address),
	}, nil
}

// Address returns the registry's address.
func (p *Proxy) Address() types.Address { return p.cfg.Address }

// CallContract stages a call of contract on the target chain on behalf of
// the frame's sender and returns its callId.
func (p *Proxy) CallContract(_ context.Context, f *xcall.Frame, contract types.Address, dappSpecificID, callData []byte, callback string) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := rawdb.ReadNextCallID(p.db, p.cfg.Address)
	if err != nil {
		return nil, err
	}
	call := &rawdb.PendingCall{
		Caller:         f.Sender,
		RemoteServer:   p.cfg.Server,
		Contract:       contract,
		DappSpecificID: dappSpecificID,
		CallData:       callData,
		Callback:       callback,
	}
	b := p.db.NewBatch()
	rawdb.WritePendingCall(b, p.cfg.Address, id, call)
	rawdb.WriteCallState(b, p.cfg.Address, id, rawdb.CallPrepared)
	rawdb.WriteNextCallID(b, p.cfg.Address, new(uint256.Int).AddUint64(id, 1))
	if err := b.Write(); err != nil {
		return nil, err
	}

	f.Emit((&xcall.CallPrepared{CallID: id}).ToLog(p.cfg.Address))
	metrics.ProxyPrepared.Inc()
	p.log.Debug("call prepared", "callId", id, "caller", f.Sender, "contract", contract)
	return id, nil
}

// RequestCall releases a prepared call. Unknown and already requested
// callIds both fail with ErrNonExistentCall.
func (p *Proxy) RequestCall(_ context.Context, f *xcall.Frame, id *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := rawdb.ReadCallState(p.db, p.cfg.Address, id)
	if err != nil {
		return err
	}
	switch state {
	case rawdb.CallPrepared:
	case rawdb.CallRequested:
		metrics.ProxyRejected.Inc()
		return fmt.Errorf("%w: call %s already requested", xcall.ErrNonExistentCall, id)
	default:
		metrics.ProxyRejected.Inc()
		return fmt.Errorf("%w: call %s was never prepared", xcall.ErrNonExistentCall, id)
	}
	call, err := rawdb.ReadPendingCall(p.db, p.cfg.Address, id)
	if err != nil {
		return err
	}
	if err := rawdb.WriteCallState(p.db, p.cfg.Address, id, rawdb.CallRequested); err != nil {
		return err
	}

	f.Emit((&xcall.CallRequested{
		CallID:         id,
		Caller:         call.Caller,
		RemoteServer:   call.RemoteServer,
		RemoteContract: call.Contract,
		CallData:       call.CallData,
	}).ToLog(p.cfg.Address))
	metrics.ProxyRequested.Inc()
	p.log.Debug("call requested", "callId", id)
	return nil
}

// AcknowledgeCall accepts a proof of the server's execution of one of this
// proxy's calls, records the acknowledgement and delivers the outcome to
// the caller's callback. A failing callback does not undo the
// acknowledgement.
func (p *Proxy) AcknowledgeCall(ctx context.Context, f *xcall.Frame, proofData []byte) error {
	err := p.acknowledge(ctx, f, proofData)
	if err != nil {
		metrics.ProxyRejected.Inc()
		p.log.Warn("acknowledgement rejected", "sender", f.Sender, "err", err)
	}
	return err
}

func (p *Proxy) acknowledge(ctx context.Context, f *xcall.Frame, proofData []byte) error {
	proof, err := xcall.DecodeProof(proofData)
	if err != nil {
		return err
	}
	meter := gas.NewMeter(f.Gas)
	if err := meter.Charge(p.cfg.Gas.VerificationCost(proof.NodeCount()), "proof verification"); err != nil {
		return err
	}
	inc, err := p.verifier.Verify(ctx, proof)
	if err != nil {
		return err
	}
	if !inc.Receipt.Succeeded() {
		return fmt.Errorf("%w: execution tx %s reverted", xcall.ErrFailedCallExecution, inc.Tx.Hash())
	}
	if inc.Tx.To == nil {
		return fmt.Errorf("%w: execution tx %s creates a contract", xcall.ErrNonExistentCallExecution, inc.Tx.Hash())
	}
	server := *inc.Tx.To
	ev, err := p.executionEvent(inc.Receipt.Logs, server)
	if err != nil {
		return err
	}
	if server != p.cfg.Server {
		return fmt.Errorf("%w: executed by %s, expected %s", xcall.ErrIllegalRpcServer, server, p.cfg.Server)
	}

	p.mu.Lock()
	call, forward, err := p.commitAck(meter, ev, inc.HeaderHash)
	p.mu.Unlock()
	if err != nil {
		return err
	}

	input, err := xcall.EncodeCallback(call.Callback, call.DappSpecificID, ev.Success, ev.Data)
	if err != nil {
		return err
	}
	if ok, _ := p.invoker.Invoke(ctx, p.cfg.Address, call.Caller, input, forward); !ok {
		metrics.ProxyCallbackFailed.Inc()
		p.log.Info("callback failed", "callId", ev.CallID, "caller", call.Caller, "callback", call.Callback)
	}

	f.Emit((&xcall.CallAcknowledged{CallID: ev.CallID, Success: ev.Success}).ToLog(p.cfg.Address))
	metrics.ProxyAcknowledged.Inc()
	p.log.Debug("call acknowledged", "callId", ev.CallID, "success", ev.Success)
	return nil
}

// executionEvent picks the CallExecuted log of server addressed to this
// proxy. Calls nested inside the execution log first, so the last match
// belongs to the outermost one.
func (p *Proxy) executionEvent(logs []*types.Log, server types.Address) (*xcall.CallExecuted, error) {
	found := xcall.FindLogs(logs, server, xcall.CallExecutedID)
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no CallExecuted log from %s", xcall.ErrNonExistentCallExecution, server)
	}
	var other types.Address
	for i := len(found) - 1; i >= 0; i-- {
		ev, err := xcall.ParseCallExecuted(found[i])
		if err != nil {
			return nil, err
		}
		if ev.RemoteRPCProxy == p.cfg.Address {
			return ev, nil
		}
		if i == len(found)-1 {
			other = ev.RemoteRPCProxy
		}
	}
	return nil, fmt.Errorf("%w: execution is for proxy %s", xcall.ErrIncorrectProxy, other)
}

// commitAck runs the state checks of an acknowledgement and records it.
// It returns the pending call and the budget to forward to its callback.
func (p *Proxy) commitAck(meter *gas.Meter, ev *xcall.CallExecuted, header types.Hash) (*rawdb.PendingCall, uint64, error) {
	acked, err := rawdb.HasAcknowledgement(p.db, p.cfg.Address, ev.CallID)
	if err != nil {
		return nil, 0, err
	}
	if acked {
		return nil, 0, fmt.Errorf("%w: call %s", xcall.ErrMultipleAcknowledgement, ev.CallID)
	}
	state, err := rawdb.ReadCallState(p.db, p.cfg.Address, ev.CallID)
	if err != nil {
		return nil, 0, err
	}
	if state != rawdb.CallRequested {
		return nil, 0, fmt.Errorf("%w: call %s is %s", xcall.ErrNonExistentCall, ev.CallID, state)
	}
	call, err := rawdb.ReadPendingCall(p.db, p.cfg.Address, ev.CallID)
	if err != nil {
		return nil, 0, err
	}
	if err := p.cfg.Gas.Check(meter.Remaining(), p.cfg.CallbackGas); err != nil {
		return nil, 0, err
	}
	ack := &rawdb.Acknowledgement{Success: ev.Success, HeaderHash: header}
	if err := rawdb.WriteAcknowledgement(p.db, p.cfg.Address, ev.CallID, ack); err != nil {
		return nil, 0, err
	}
	return call, p.cfg.Gas.Forwardable(meter.Remaining()), nil
}

// NextCallID returns the callId the next CallContract will assign.
func (p *Proxy) NextCallID() (*uint256.Int, error) {
	return rawdb.ReadNextCallID(p.db, p.cfg.Address)
}

// PendingCall returns a call that is prepared and not yet requested.
func (p *Proxy) PendingCall(id *uint256.Int) (*rawdb.PendingCall, error) {
	state, err := p.CallState(id)
	if err != nil {
		return nil, err
	}
	if state != rawdb.CallPrepared {
		return nil, fmt.Errorf("%w: call %s is %s", xcall.ErrNonExistentCall, id, state)
	}
	return rawdb.ReadPendingCall(p.db, p.cfg.Address, id)
}

// CallState returns the lifecycle tag of id.
func (p *Proxy) CallState(id *uint256.Int) (rawdb.CallState, error) {
	return rawdb.ReadCallState(p.db, p.cfg.Address, id)
}

// Acknowledged reports whether id was acknowledged, and the outcome if so.
func (p *Proxy) Acknowledged(id *uint256.Int) (*rawdb.Acknowledgement, bool, error) {
	ack, err := rawdb.ReadAcknowledgement(p.db, p.cfg.Address, id)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return ack, true, nil
}
