package rawdb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/xcall/core/types"
)

var (
	proxyA  = types.HexToAddress("0x00000000000000000000000000000000000000a1")
	proxyB  = types.HexToAddress("0x00000000000000000000000000000000000000b2")
	serverA = types.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	ldb, err := OpenLevelDB("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ldb.Close() })
	return map[string]Database{"memory": NewMemoryDB(), "leveldb": ldb}
}

func TestCallRegistryAccessors(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			next, err := ReadNextCallID(db, proxyA)
			if err != nil || !next.IsZero() {
				t.Fatalf("fresh next callId = %v, %v", next, err)
			}
			big := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
			if err := WriteNextCallID(db, proxyA, big); err != nil {
				t.Fatal(err)
			}
			if next, _ = ReadNextCallID(db, proxyA); !next.Eq(big) {
				t.Fatalf("next callId = %v", next)
			}
			if next, _ = ReadNextCallID(db, proxyB); !next.IsZero() {
				t.Fatal("next callId leaked across proxies")
			}

			id := uint256.NewInt(5)
			call := &PendingCall{
				Caller:         types.HexToAddress("0x11"),
				RemoteServer:   serverA,
				Contract:       types.HexToAddress("0x22"),
				DappSpecificID: []byte("order-9"),
				CallData:       []byte{0xa9, 0x05, 0x9c, 0xbb},
				Callback:       "onResult",
			}
			if _, err := ReadPendingCall(db, proxyA, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("want ErrNotFound, got %v", err)
			}
			if err := WritePendingCall(db, proxyA, id, call); err != nil {
				t.Fatal(err)
			}
			got, err := ReadPendingCall(db, proxyA, id)
			if err != nil {
				t.Fatal(err)
			}
			if got.Caller != call.Caller || got.RemoteServer != call.RemoteServer || got.Contract != call.Contract ||
				!bytes.Equal(got.DappSpecificID, call.DappSpecificID) || !bytes.Equal(got.CallData, call.CallData) ||
				got.Callback != call.Callback {
				t.Fatalf("pending call = %+v, want %+v", got, call)
			}

			if s, _ := ReadCallState(db, proxyA, id); s != CallUnknown {
				t.Fatalf("state = %v", s)
			}
			WriteCallState(db, proxyA, id, CallPrepared)
			if s, _ := ReadCallState(db, proxyA, id); s != CallPrepared {
				t.Fatalf("state = %v", s)
			}

			if ok, _ := HasAcknowledgement(db, proxyA, id); ok {
				t.Fatal("unexpected acknowledgement")
			}
			ack := &Acknowledgement{Success: true, HeaderHash: types.HexToHash("0xbeef")}
			if err := WriteAcknowledgement(db, proxyA, id, ack); err != nil {
				t.Fatal(err)
			}
			gotAck, err := ReadAcknowledgement(db, proxyA, id)
			if err != nil || *gotAck != *ack {
				t.Fatalf("ack = %+v, %v", gotAck, err)
			}
		})
	}
}

func TestExecutionRegistryAccessors(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadRegistration(db, serverA, proxyA); !errors.Is(err, ErrNotFound) {
				t.Fatalf("want ErrNotFound, got %v", err)
			}
			regs := map[types.Address]*Registration{
				proxyB: {Relay: types.HexToAddress("0x77"), Confirmations: 2, ChainID: 5},
				proxyA: {Relay: types.HexToAddress("0x66"), Confirmations: 0, ChainID: 1},
			}
			for p, r := range regs {
				if err := WriteRegistration(db, serverA, p, r); err != nil {
					t.Fatal(err)
				}
			}
			var seen []types.Address
			err := IterateRegistrations(db, serverA, func(p types.Address, r *Registration) bool {
				if *r != *regs[p] {
					t.Errorf("registration of %s = %+v", p, r)
				}
				seen = append(seen, p)
				return true
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(seen) != 2 || seen[0] != proxyA || seen[1] != proxyB {
				t.Fatalf("iteration order %v", seen)
			}

			reqID := types.HexToHash("0x1234")
			rec := &ExecutionRecord{Proxy: proxyA, CallID: uint256.NewInt(9), Success: false, HeaderHash: types.HexToHash("0x99")}
			if ok, _ := HasExecutionRecord(db, serverA, reqID); ok {
				t.Fatal("unexpected execution record")
			}
			if err := WriteExecutionRecord(db, serverA, reqID, rec); err != nil {
				t.Fatal(err)
			}
			got, err := ReadExecutionRecord(db, serverA, reqID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Proxy != rec.Proxy || !got.CallID.Eq(rec.CallID) || got.Success || got.HeaderHash != rec.HeaderHash {
				t.Fatalf("record = %+v", got)
			}
		})
	}
}

func TestCorruptRecords(t *testing.T) {
	db := NewMemoryDB()
	db.Put(pendingCallKey(proxyA, uint256.NewInt(1)), []byte{0xc1, 0x80})
	if _, err := ReadPendingCall(db, proxyA, uint256.NewInt(1)); err == nil {
		t.Fatal("expected error for corrupt pending call")
	}
	db.Put(callStateKey(proxyA, uint256.NewInt(1)), []byte{1, 2})
	if _, err := ReadCallState(db, proxyA, uint256.NewInt(1)); err == nil {
		t.Fatal("expected error for corrupt state")
	}
	db.Put(nextCallIDKey(proxyA), []byte{1})
	if _, err := ReadNextCallID(db, proxyA); err == nil {
		t.Fatal("expected error for short callId")
	}
}
