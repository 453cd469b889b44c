package rawdb

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/xcall/core/types"
)

// Key prefixes. Every key continues with the 20-byte address of the owning
// registry.
var (
	// Call registry
	nextCallIDPrefix  = []byte("n") // n + proxy -> next callId (32 bytes BE)
	pendingCallPrefix = []byte("p") // p + proxy + callId -> PendingCall RLP
	callStatePrefix   = []byte("s") // s + proxy + callId -> CallState byte
	ackPrefix         = []byte("a") // a + proxy + callId -> acknowledgement RLP

	// Execution registry
	registrationPrefix = []byte("g") // g + server + proxy -> Registration RLP
	executedPrefix     = []byte("x") // x + server + requestId -> ExecutionRecord RLP
)

func scopedKey(prefix []byte, owner types.Address, rest ...[]byte) []byte {
	n := len(prefix) + types.AddressLength
	for _, r := range rest {
		n += len(r)
	}
	key := make([]byte, 0, n)
	key = append(key, prefix...)
	key = append(key, owner[:]...)
	for _, r := range rest {
		key = append(key, r...)
	}
	return key
}

func encodeCallID(id *uint256.Int) []byte {
	b := id.Bytes32()
	return b[:]
}

func nextCallIDKey(proxy types.Address) []byte {
	return scopedKey(nextCallIDPrefix, proxy)
}

func pendingCallKey(proxy types.Address, id *uint256.Int) []byte {
	return scopedKey(pendingCallPrefix, proxy, encodeCallID(id))
}

func callStateKey(proxy types.Address, id *uint256.Int) []byte {
	return scopedKey(callStatePrefix, proxy, encodeCallID(id))
}

func ackKey(proxy types.Address, id *uint256.Int) []byte {
	return scopedKey(ackPrefix, proxy, encodeCallID(id))
}

func registrationKey(server, proxy types.Address) []byte {
	return scopedKey(registrationPrefix, server, proxy[:])
}

func executedKey(server types.Address, requestID types.Hash) []byte {
	return scopedKey(executedPrefix, server, requestID[:])
}
