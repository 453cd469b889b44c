package server

import (
	"bytes"
	"context"
	"errors"
	"testing"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/rawdb"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/relay"
)

var (
	serverAddr   = types.HexToAddress("0x00000000000000000000000000000000000000b2")
	ownerAddr    = types.HexToAddress("0x00000000000000000000000000000000000000e1")
	proxyAddr    = types.HexToAddress("0x00000000000000000000000000000000000000a1")
	relayAddr    = types.HexToAddress("0x00000000000000000000000000000000000000f0")
	contractAddr = types.HexToAddress("0x00000000000000000000000000000000000000d4")
	callerAddr   = types.HexToAddress("0x00000000000000000000000000000000000000c3")
)

const testGas = 2_000_000

type fixture struct {
	server  *Server
	relay   *relay.MockRelay
	invoker *recordingInvoker
}

func newFixture(t *testing.T, register bool) *fixture {
	t.Helper()
	m := relay.NewMockRelay()
	dir := relay.NewStaticDirectory()
	dir.Add(relayAddr, m)
	inv := &recordingInvoker{ok: true}
	cfg := DefaultConfig()
	cfg.Address, cfg.Owner = serverAddr, ownerAddr
	s, err := New(cfg, rawdb.NewMemoryDB(), dir, inv, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if register {
		f := xcall.NewFrame(ownerAddr, testGas)
		if err := s.RegisterProxy(context.Background(), f, proxyAddr, relayAddr, ProxyConfig{ChainID: 1}); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{server: s, relay: m, invoker: inv}
}

func requestedProof(t *testing.T, emitter, to, remoteServer types.Address, id uint64, status uint64) []byte {
	t.Helper()
	ev := &xcall.CallRequested{
		CallID:         uint256.NewInt(id),
		Caller:         callerAddr,
		RemoteServer:   remoteServer,
		RemoteContract: contractAddr,
		CallData:       []byte{0x12, 0x34},
	}
	return blockProof(t, to, []*types.Log{ev.ToLog(emitter)}, status)
}

func validProof(t *testing.T, id uint64) []byte {
	return requestedProof(t, proxyAddr, proxyAddr, serverAddr, id, types.ReceiptStatusSuccessful)
}

func TestRegisterProxy(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	err := fx.server.RegisterProxy(ctx, xcall.NewFrame(callerAddr, testGas), proxyAddr, relayAddr, ProxyConfig{})
	if !errors.Is(err, xcall.ErrUnauthorized) {
		t.Fatalf("non-owner: want ErrUnauthorized, got %v", err)
	}
	err = fx.server.RegisterProxy(ctx, xcall.NewFrame(ownerAddr, testGas), proxyAddr, types.HexToAddress("0x99"), ProxyConfig{})
	if !errors.Is(err, xcall.ErrUnknownRelay) {
		t.Fatalf("unknown relay: want ErrUnknownRelay, got %v", err)
	}
	if _, err := fx.server.Registration(proxyAddr); !errors.Is(err, xcall.ErrIllegalProxyAddress) {
		t.Fatalf("want ErrIllegalProxyAddress, got %v", err)
	}

	pc := ProxyConfig{Confirmations: 3, ChainID: 10}
	if err := fx.server.RegisterProxy(ctx, xcall.NewFrame(ownerAddr, testGas), proxyAddr, relayAddr, pc); err != nil {
		t.Fatal(err)
	}
	reg, err := fx.server.Registration(proxyAddr)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Relay != relayAddr || reg.Confirmations != 3 || reg.ChainID != 10 {
		t.Fatalf("registration %+v", reg)
	}
	proxies, err := fx.server.Proxies()
	if err != nil || len(proxies) != 1 || proxies[0] != proxyAddr {
		t.Fatalf("Proxies = %v, %v", proxies, err)
	}
}

func TestReRegisterKeepsReplayGuard(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()
	proof := validProof(t, 7)
	if err := fx.server.ExecuteCall(ctx, xcall.NewFrame(callerAddr, testGas), proof); err != nil {
		t.Fatal(err)
	}

	owner := xcall.NewFrame(ownerAddr, testGas)
	err := fx.server.RegisterProxy(ctx, owner, proxyAddr, relayAddr, ProxyConfig{ChainID: 2})
	if !errors.Is(err, ErrChainIDChanged) {
		t.Fatalf("chain id change: want ErrChainIDChanged, got %v", err)
	}
	if err := fx.server.RegisterProxy(ctx, owner, proxyAddr, relayAddr, ProxyConfig{ChainID: 1, Confirmations: 2}); err != nil {
		t.Fatalf("re-register with same chain id: %v", err)
	}
	reg, err := fx.server.Registration(proxyAddr)
	if err != nil || reg.ChainID != 1 || reg.Confirmations != 2 {
		t.Fatalf("registration %+v, %v", reg, err)
	}

	err = fx.server.ExecuteCall(ctx, xcall.NewFrame(callerAddr, testGas), proof)
	if !errors.Is(err, xcall.ErrMultipleExecution) {
		t.Fatalf("replay after re-register: want ErrMultipleExecution, got %v", err)
	}
	if len(fx.invoker.calls) != 1 {
		t.Fatalf("remote invoked %d times", len(fx.invoker.calls))
	}
}

func TestExecuteCall(t *testing.T) {
	fx := newFixture(t, true)
	fx.invoker.ret = []byte("answer")
	ctx := context.Background()
	proof := validProof(t, 0)

	f := xcall.NewFrame(callerAddr, testGas)
	if err := fx.server.ExecuteCall(ctx, f, proof); err != nil {
		t.Fatalf("ExecuteCall: %v", err)
	}
	if len(fx.invoker.calls) != 1 {
		t.Fatalf("remote invoked %d times", len(fx.invoker.calls))
	}
	call := fx.invoker.calls[0]
	if call.from != serverAddr || call.to != contractAddr || !bytes.Equal(call.input, []byte{0x12, 0x34}) {
		t.Fatalf("remote call %+v", call)
	}
	if call.gas < DefaultMinCallGas {
		t.Fatalf("remote got %d gas, want at least %d", call.gas, DefaultMinCallGas)
	}
	ev, err := xcall.ParseCallExecuted(f.Logs()[0])
	if err != nil {
		t.Fatal(err)
	}
	if ev.CallID.Uint64() != 0 || ev.RemoteRPCProxy != proxyAddr || !ev.Success || string(ev.Data) != "answer" {
		t.Fatalf("CallExecuted = %+v", ev)
	}
	rec, err := fx.server.Executed(proxyAddr, uint256.NewInt(0))
	if err != nil || rec == nil || !rec.Success {
		t.Fatalf("Executed = %+v, %v", rec, err)
	}

	err = fx.server.ExecuteCall(ctx, xcall.NewFrame(callerAddr, testGas), proof)
	if !errors.Is(err, xcall.ErrMultipleExecution) {
		t.Fatalf("replay: want ErrMultipleExecution, got %v", err)
	}
	if len(fx.invoker.calls) != 1 {
		t.Fatal("replay reached the remote contract")
	}
}

func TestExecuteCallRemoteFailure(t *testing.T) {
	fx := newFixture(t, true)
	fx.invoker.ok = false
	f := xcall.NewFrame(callerAddr, testGas)
	if err := fx.server.ExecuteCall(context.Background(), f, validProof(t, 4)); err != nil {
		t.Fatalf("remote failure surfaced as error: %v", err)
	}
	ev, err := xcall.ParseCallExecuted(f.Logs()[0])
	if err != nil || ev.Success {
		t.Fatalf("CallExecuted = %+v, %v", ev, err)
	}
	rec, _ := fx.server.Executed(proxyAddr, uint256.NewInt(4))
	if rec == nil || rec.Success {
		t.Fatalf("record %+v", rec)
	}
}

func TestExecuteCallRejections(t *testing.T) {
	other := types.HexToAddress("0x00000000000000000000000000000000000000ff")
	tests := []struct {
		name     string
		register bool
		relay    func(*relay.MockRelay)
		proof    func(*testing.T) []byte
		gas      uint64
		wantErr  error
	}{
		{
			name:     "garbage proof",
			register: true,
			proof:    func(*testing.T) []byte { return []byte{0xc0} },
			wantErr:  xcall.ErrCodec,
		},
		{
			name:     "unregistered proxy",
			register: false,
			wantErr:  xcall.ErrIllegalProxyAddress,
		},
		{
			name:     "request from another proxy",
			register: true,
			proof: func(t *testing.T) []byte {
				return requestedProof(t, other, other, serverAddr, 0, types.ReceiptStatusSuccessful)
			},
			wantErr: xcall.ErrIllegalProxyAddress,
		},
		{
			name:     "header rejected",
			register: true,
			relay:    func(m *relay.MockRelay) { m.SetHeaderVerificationResult(false) },
			wantErr:  xcall.ErrNonExistentCallExecution,
		},
		{
			name:     "tx root rejected",
			register: true,
			relay:    func(m *relay.MockRelay) { m.SetTxVerificationResult(false) },
			wantErr:  xcall.ErrNonExistentCallExecution,
		},
		{
			name:     "request reverted",
			register: true,
			proof: func(t *testing.T) []byte {
				return requestedProof(t, proxyAddr, proxyAddr, serverAddr, 0, types.ReceiptStatusFailed)
			},
			wantErr: xcall.ErrFailedCallRequest,
		},
		{
			name:     "event from another emitter",
			register: true,
			proof: func(t *testing.T) []byte {
				return requestedProof(t, other, proxyAddr, serverAddr, 0, types.ReceiptStatusSuccessful)
			},
			wantErr: xcall.ErrNonExistentCallExecution,
		},
		{
			name:     "request for another server",
			register: true,
			proof: func(t *testing.T) []byte {
				return requestedProof(t, proxyAddr, proxyAddr, other, 0, types.ReceiptStatusSuccessful)
			},
			wantErr: xcall.ErrIncorrectServer,
		},
		{
			name:     "budget below verification cost",
			register: true,
			gas:      10_000,
			wantErr:  xcall.ErrInsufficientResources,
		},
		{
			name:     "budget below call minimum",
			register: true,
			gas:      200_000,
			wantErr:  xcall.ErrInsufficientResources,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.register)
			if tt.relay != nil {
				tt.relay(fx.relay)
			}
			proof := validProof(t, 0)
			if tt.proof != nil {
				proof = tt.proof(t)
			}
			budget := uint64(testGas)
			if tt.gas != 0 {
				budget = tt.gas
			}
			f := xcall.NewFrame(callerAddr, budget)
			err := fx.server.ExecuteCall(context.Background(), f, proof)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if len(f.Logs()) != 0 || len(fx.invoker.calls) != 0 {
				t.Fatal("rejected execution had side effects")
			}
		})
	}
}

func TestExecuteCallInsufficientThenAdequate(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()
	proof := validProof(t, 7)
	if err := fx.server.ExecuteCall(ctx, xcall.NewFrame(callerAddr, 100_000), proof); !errors.Is(err, xcall.ErrInsufficientResources) {
		t.Fatalf("want ErrInsufficientResources, got %v", err)
	}
	if rec, _ := fx.server.Executed(proxyAddr, uint256.NewInt(7)); rec != nil {
		t.Fatal("underfunded execution was recorded")
	}
	f := xcall.NewFrame(callerAddr, testGas)
	if err := fx.server.ExecuteCall(ctx, f, proof); err != nil {
		t.Fatalf("adequate budget: %v", err)
	}
	if len(f.Logs()) != 1 {
		t.Fatalf("got %d logs", len(f.Logs()))
	}
}

func TestRequestIDDistinguishesChains(t *testing.T) {
	id := uint256.NewInt(1)
	a := RequestID(1, proxyAddr, id)
	if a == RequestID(2, proxyAddr, id) {
		t.Fatal("chain id not bound")
	}
	if a == RequestID(1, callerAddr, id) {
		t.Fatal("proxy not bound")
	}
	if a == RequestID(1, proxyAddr, uint256.NewInt(2)) {
		t.Fatal("callId not bound")
	}
}

func TestCallDispatch(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	input, err := xcall.ServerABI.Pack("addProxy", gethcommon.Address(proxyAddr), gethcommon.Address(relayAddr), uint64(0), uint64(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fx.server.Call(ctx, xcall.NewFrame(ownerAddr, testGas), input); err != nil {
		t.Fatalf("addProxy: %v", err)
	}
	input, err = xcall.ServerABI.Pack("executeCall", validProof(t, 0))
	if err != nil {
		t.Fatal(err)
	}
	f := xcall.NewFrame(callerAddr, testGas)
	if _, err := fx.server.Call(ctx, f, input); err != nil {
		t.Fatalf("executeCall: %v", err)
	}
	if len(f.Logs()) != 1 {
		t.Fatal("no CallExecuted emitted")
	}
	if _, err := fx.server.Call(ctx, f, []byte{0, 0, 0, 0}); !errors.Is(err, xcall.ErrUnknownMethod) {
		t.Fatalf("unknown selector: %v", err)
	}
}
