package sim

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
)

// ContractFunc adapts a function to xcall.Contract.
type ContractFunc func(ctx context.Context, f *xcall.Frame, input []byte) ([]byte, error)

// Call implements xcall.Contract.
func (fn ContractFunc) Call(ctx context.Context, f *xcall.Frame, input []byte) ([]byte, error) {
	return fn(ctx, f, input)
}

var errReverted = errors.New("sim: execution reverted")

// Target is a remote contract that records the calldata it receives and
// answers with a fixed output, or reverts while Revert is set.
type Target struct {
	mu     sync.Mutex
	Output []byte
	Revert bool
	calls  [][]byte
}

// Call implements xcall.Contract.
func (t *Target) Call(_ context.Context, _ *xcall.Frame, input []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Revert {
		return nil, errReverted
	}
	t.calls = append(t.calls, bytes.Clone(input))
	return t.Output, nil
}

// SetRevert makes subsequent calls revert.
func (t *Target) SetRevert(revert bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Revert = revert
}

// Calls returns the calldata of every successful call.
func (t *Target) Calls() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.calls...)
}

// Callback is one acknowledgement delivered to a Client.
type Callback struct {
	DappSpecificID []byte
	Success        bool
	Data           []byte
}

// Client is a source-chain application. Calls carrying its callback
// selector are recorded as acknowledgements; any other input is forwarded
// to the proxy, so calls it stages name the client as caller. While Fail is
// set every callback reverts after being recorded.
type Client struct {
	Address      types.Address
	Proxy        types.Address
	CallbackName string
	Invoker      xcall.Invoker

	mu        sync.Mutex
	Fail      bool
	callbacks []Callback
}

// Call implements xcall.Contract.
func (c *Client) Call(ctx context.Context, f *xcall.Frame, input []byte) ([]byte, error) {
	if len(input) >= 4 && [4]byte(input[:4]) == xcall.Selector(xcall.CallbackSignature(c.CallbackName)) {
		return nil, c.callback(input)
	}
	ok, ret := c.Invoker.Invoke(ctx, c.Address, c.Proxy, input, f.Gas)
	if !ok {
		return nil, errReverted
	}
	return ret, nil
}

func (c *Client) callback(input []byte) error {
	_, dapp, ok, data, err := xcall.DecodeCallback(input)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, Callback{DappSpecificID: dapp, Success: ok, Data: data})
	if c.Fail {
		return errReverted
	}
	return nil
}

// SetFail makes subsequent callbacks revert.
func (c *Client) SetFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Fail = fail
}

// Callbacks returns every callback received, including failed ones.
func (c *Client) Callbacks() []Callback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Callback(nil), c.callbacks...)
}
