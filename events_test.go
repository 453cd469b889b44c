package xcall

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/crypto"
)

var (
	testProxy  = types.HexToAddress("0x1000000000000000000000000000000000000001")
	testServer = types.HexToAddress("0x2000000000000000000000000000000000000002")
)

func TestEventIDs(t *testing.T) {
	want := map[types.Hash]string{
		CallPreparedID:     "CallPrepared(uint256)",
		CallRequestedID:    "CallRequested(uint256,address,address,address,bytes)",
		CallAcknowledgedID: "CallAcknowledged(uint256,bool)",
		CallExecutedID:     "CallExecuted(uint256,address,bool,bytes)",
	}
	for id, sig := range want {
		if id != crypto.Keccak256Hash([]byte(sig)) {
			t.Errorf("%s: id %s", sig, id)
		}
	}
}

func TestCallRequestedLog(t *testing.T) {
	ev := &CallRequested{
		CallID:         uint256.NewInt(42),
		Caller:         types.HexToAddress("0xaa"),
		RemoteServer:   testServer,
		RemoteContract: types.HexToAddress("0xbb"),
		CallData:       []byte{0x01, 0x02, 0x03},
	}
	l := ev.ToLog(testProxy)
	if l.Address != testProxy || l.Topics[0] != CallRequestedID {
		t.Fatalf("unexpected log header %+v", l)
	}
	got, err := ParseCallRequested(l)
	if err != nil {
		t.Fatalf("ParseCallRequested: %v", err)
	}
	if !got.CallID.Eq(ev.CallID) || got.Caller != ev.Caller || got.RemoteServer != ev.RemoteServer ||
		got.RemoteContract != ev.RemoteContract || !bytes.Equal(got.CallData, ev.CallData) {
		t.Fatalf("got %+v, want %+v", got, ev)
	}
	if _, err := ParseCallExecuted(l); !errors.Is(err, ErrCodec) {
		t.Fatalf("parsing as wrong event: want ErrCodec, got %v", err)
	}
}

func TestCallExecutedLog(t *testing.T) {
	id := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	ev := &CallExecuted{CallID: id, RemoteRPCProxy: testProxy, Success: true, Data: []byte("ok")}
	got, err := ParseCallExecuted(ev.ToLog(testServer))
	if err != nil {
		t.Fatal(err)
	}
	if !got.CallID.Eq(id) || got.RemoteRPCProxy != testProxy || !got.Success || string(got.Data) != "ok" {
		t.Fatalf("got %+v", got)
	}

	l := ev.ToLog(testServer)
	l.Data = l.Data[:40]
	if _, err := ParseCallExecuted(l); !errors.Is(err, ErrCodec) {
		t.Fatalf("truncated data: want ErrCodec, got %v", err)
	}
}

func TestSmallEvents(t *testing.T) {
	p, err := ParseCallPrepared((&CallPrepared{CallID: uint256.NewInt(7)}).ToLog(testProxy))
	if err != nil || p.CallID.Uint64() != 7 {
		t.Fatalf("CallPrepared: %v %+v", err, p)
	}
	a, err := ParseCallAcknowledged((&CallAcknowledged{CallID: uint256.NewInt(8), Success: true}).ToLog(testProxy))
	if err != nil || a.CallID.Uint64() != 8 || !a.Success {
		t.Fatalf("CallAcknowledged: %v %+v", err, a)
	}
}

func TestFindLog(t *testing.T) {
	prepared := (&CallPrepared{CallID: uint256.NewInt(1)}).ToLog(testProxy)
	foreign := (&CallExecuted{CallID: uint256.NewInt(1), Data: []byte{}}).ToLog(types.HexToAddress("0xdead"))
	executed := (&CallExecuted{CallID: uint256.NewInt(2), Data: []byte{}}).ToLog(testServer)
	logs := []*types.Log{prepared, foreign, executed, {Address: testServer}}

	if got := FindLog(logs, testServer, CallExecutedID); got != executed {
		t.Fatalf("FindLog returned %+v", got)
	}
	if got := FindLog(logs, testProxy, CallExecutedID); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}

	second := (&CallExecuted{CallID: uint256.NewInt(3), Data: []byte{}}).ToLog(testServer)
	all := FindLogs(append(logs, second), testServer, CallExecutedID)
	if len(all) != 2 || all[0] != executed || all[1] != second {
		t.Fatalf("FindLogs returned %d logs", len(all))
	}
}

func TestCallback(t *testing.T) {
	input, err := EncodeCallback("onResult", []byte("dapp-7"), true, []byte{0xff})
	if err != nil {
		t.Fatal(err)
	}
	sel, dapp, ok, data, err := DecodeCallback(input)
	if err != nil {
		t.Fatal(err)
	}
	if sel != Selector("onResult(bytes,bool,bytes)") {
		t.Fatalf("selector %x", sel)
	}
	if string(dapp) != "dapp-7" || !ok || !bytes.Equal(data, []byte{0xff}) {
		t.Fatalf("decoded %q %v %x", dapp, ok, data)
	}
	if _, _, _, _, err := DecodeCallback(input[:3]); !errors.Is(err, ErrCodec) {
		t.Fatalf("short input: want ErrCodec, got %v", err)
	}
}
