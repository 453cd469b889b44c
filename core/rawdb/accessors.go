package rawdb

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/xcall/core/types"
)

// --- Call registry ---

// ReadNextCallID returns the next callId to assign on proxy; zero when
// nothing was stored yet.
func ReadNextCallID(db KeyValueReader, proxy types.Address) (*uint256.Int, error) {
	data, err := db.Get(nextCallIDKey(proxy))
	if errors.Is(err, ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("rawdb: next callId has %d bytes", len(data))
	}
	return new(uint256.Int).SetBytes32(data), nil
}

// WriteNextCallID stores the next callId to assign on proxy.
func WriteNextCallID(db KeyValueWriter, proxy types.Address, id *uint256.Int) error {
	return db.Put(nextCallIDKey(proxy), encodeCallID(id))
}

// ReadPendingCall returns the call staged under id, or ErrNotFound.
func ReadPendingCall(db KeyValueReader, proxy types.Address, id *uint256.Int) (*PendingCall, error) {
	data, err := db.Get(pendingCallKey(proxy, id))
	if err != nil {
		return nil, err
	}
	c, err := decodePendingCall(data)
	if err != nil {
		return nil, fmt.Errorf("rawdb: pending call %s: %w", id, err)
	}
	return c, nil
}

// WritePendingCall stores a staged call.
func WritePendingCall(db KeyValueWriter, proxy types.Address, id *uint256.Int, c *PendingCall) error {
	return db.Put(pendingCallKey(proxy, id), c.EncodeRLP())
}

// ReadCallState returns the lifecycle tag of id, CallUnknown if absent.
func ReadCallState(db KeyValueReader, proxy types.Address, id *uint256.Int) (CallState, error) {
	data, err := db.Get(callStateKey(proxy, id))
	if errors.Is(err, ErrNotFound) {
		return CallUnknown, nil
	}
	if err != nil {
		return CallUnknown, err
	}
	if len(data) != 1 {
		return CallUnknown, fmt.Errorf("rawdb: call state has %d bytes", len(data))
	}
	return CallState(data[0]), nil
}

// WriteCallState stores the lifecycle tag of id.
func WriteCallState(db KeyValueWriter, proxy types.Address, id *uint256.Int, state CallState) error {
	return db.Put(callStateKey(proxy, id), []byte{byte(state)})
}

// ReadAcknowledgement returns the recorded acknowledgement of id, or
// ErrNotFound.
func ReadAcknowledgement(db KeyValueReader, proxy types.Address, id *uint256.Int) (*Acknowledgement, error) {
	data, err := db.Get(ackKey(proxy, id))
	if err != nil {
		return nil, err
	}
	a, err := decodeAcknowledgement(data)
	if err != nil {
		return nil, fmt.Errorf("rawdb: acknowledgement %s: %w", id, err)
	}
	return a, nil
}

// HasAcknowledgement reports whether id was acknowledged.
func HasAcknowledgement(db KeyValueReader, proxy types.Address, id *uint256.Int) (bool, error) {
	return db.Has(ackKey(proxy, id))
}

// WriteAcknowledgement records the acknowledgement of id.
func WriteAcknowledgement(db KeyValueWriter, proxy types.Address, id *uint256.Int, a *Acknowledgement) error {
	return db.Put(ackKey(proxy, id), a.encode())
}

// --- Execution registry ---

// ReadRegistration returns the registration of proxy on server, or
// ErrNotFound.
func ReadRegistration(db KeyValueReader, server, proxy types.Address) (*Registration, error) {
	data, err := db.Get(registrationKey(server, proxy))
	if err != nil {
		return nil, err
	}
	r, err := decodeRegistration(data)
	if err != nil {
		return nil, fmt.Errorf("rawdb: registration %s: %w", proxy, err)
	}
	return r, nil
}

// WriteRegistration stores the registration of proxy on server.
func WriteRegistration(db KeyValueWriter, server, proxy types.Address, r *Registration) error {
	return db.Put(registrationKey(server, proxy), r.encode())
}

// IterateRegistrations calls fn for each proxy registered on server, in
// address order, until fn returns false.
func IterateRegistrations(db Database, server types.Address, fn func(proxy types.Address, r *Registration) bool) error {
	prefix := scopedKey(registrationPrefix, server)
	it := db.NewIterator(prefix)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+types.AddressLength {
			continue
		}
		r, err := decodeRegistration(it.Value())
		if err != nil {
			return fmt.Errorf("rawdb: registration %x: %w", key, err)
		}
		if !fn(types.BytesToAddress(key[len(prefix):]), r) {
			break
		}
	}
	return nil
}

// ReadExecutionRecord returns the record of requestID on server, or
// ErrNotFound.
func ReadExecutionRecord(db KeyValueReader, server types.Address, requestID types.Hash) (*ExecutionRecord, error) {
	data, err := db.Get(executedKey(server, requestID))
	if err != nil {
		return nil, err
	}
	e, err := decodeExecutionRecord(data)
	if err != nil {
		return nil, fmt.Errorf("rawdb: execution %s: %w", requestID, err)
	}
	return e, nil
}

// HasExecutionRecord reports whether requestID was executed on server.
func HasExecutionRecord(db KeyValueReader, server types.Address, requestID types.Hash) (bool, error) {
	return db.Has(executedKey(server, requestID))
}

// WriteExecutionRecord marks requestID as executed on server.
func WriteExecutionRecord(db KeyValueWriter, server types.Address, requestID types.Hash, e *ExecutionRecord) error {
	return db.Put(executedKey(server, requestID), e.encode())
}
