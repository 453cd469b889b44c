package sim

import (
	"context"
	"fmt"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/rawdb"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/gas"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/proxy"
	"github.com/eth2030/xcall/relay"
	"github.com/eth2030/xcall/server"
)

// Well-known addresses of the simulated deployment.
var (
	ProxyAddress  = types.HexToAddress("0x000000000000000000000000000000000000c0a1")
	ServerAddress = types.HexToAddress("0x000000000000000000000000000000000000c0b2")
	RelayAddress  = types.HexToAddress("0x000000000000000000000000000000000000c0c3")
	TargetAddress = types.HexToAddress("0x000000000000000000000000000000000000c0d4")
	ClientAddress = types.HexToAddress("0x000000000000000000000000000000000000c0e5")
)

// DefaultTxGas is the gas limit used for relayed transactions.
const DefaultTxGas = 2_000_000

// Config configures a Network.
type Config struct {
	SourceChainID uint64
	TargetChainID uint64
	// Confirmations required by both registries.
	Confirmations uint64
	Gas           gas.Schedule
	CallbackGas   uint64
	MinCallGas    uint64
	CallbackName  string
}

// DefaultConfig returns the configuration used by tests and the demo.
func DefaultConfig() Config {
	return Config{
		SourceChainID: 1,
		TargetChainID: 2,
		Gas:           gas.DefaultSchedule(),
		CallbackGas:   proxy.DefaultCallbackGas,
		MinCallGas:    server.DefaultMinCallGas,
		CallbackName:  "onResult",
	}
}

// Network is a proxy on a source chain and a server on a target chain,
// each following the other's headers through a HeaderChain relay.
type Network struct {
	Source *Chain
	Target *Chain

	Proxy  *proxy.Proxy
	Server *server.Server
	Client *Client
	Remote *Target

	// SourceRelay tracks source headers for the server; TargetRelay tracks
	// target headers for the proxy.
	SourceRelay *relay.HeaderChain
	TargetRelay *relay.HeaderChain

	Owner   *geth.Account
	Relayer *geth.Account

	confirmations uint64
}

// NewNetwork deploys the registries and sample contracts. Registry state
// of both chains lives in db.
func NewNetwork(ctx context.Context, cfg Config, db rawdb.Database, logger *log.Logger) (*Network, error) {
	if logger == nil {
		logger = log.Default()
	}
	owner, err := geth.GenerateAccount()
	if err != nil {
		return nil, err
	}
	relayer, err := geth.GenerateAccount()
	if err != nil {
		return nil, err
	}
	n := &Network{
		Source:      NewChain(cfg.SourceChainID, logger),
		Target:      NewChain(cfg.TargetChainID, logger),
		SourceRelay: relay.NewHeaderChain(logger),
		TargetRelay: relay.NewHeaderChain(logger),
		Owner:       owner,
		Relayer:     relayer,

		confirmations: cfg.Confirmations,
	}
	if err := n.Source.Follow(n.SourceRelay); err != nil {
		return nil, err
	}
	if err := n.Target.Follow(n.TargetRelay); err != nil {
		return nil, err
	}

	n.Proxy, err = proxy.New(proxy.Config{
		Address:       ProxyAddress,
		Server:        ServerAddress,
		Relay:         n.TargetRelay,
		Confirmations: cfg.Confirmations,
		Gas:           cfg.Gas,
		CallbackGas:   cfg.CallbackGas,
	}, db, n.Source, logger)
	if err != nil {
		return nil, err
	}
	dir := relay.NewStaticDirectory()
	dir.Add(RelayAddress, n.SourceRelay)
	n.Server, err = server.New(server.Config{
		Address:    ServerAddress,
		Owner:      owner.Address,
		Gas:        cfg.Gas,
		MinCallGas: cfg.MinCallGas,
	}, db, dir, n.Target, logger)
	if err != nil {
		return nil, err
	}

	n.Client = &Client{Address: ClientAddress, Proxy: ProxyAddress, CallbackName: cfg.CallbackName, Invoker: n.Source}
	n.Remote = &Target{Output: []byte("ok")}
	n.Source.Deploy(ProxyAddress, n.Proxy)
	n.Source.Deploy(ClientAddress, n.Client)
	n.Target.Deploy(ServerAddress, n.Server)
	n.Target.Deploy(TargetAddress, n.Remote)

	input, err := xcall.ServerABI.Pack("addProxy", geth.ToGethAddress(ProxyAddress), geth.ToGethAddress(RelayAddress),
		cfg.Confirmations, cfg.SourceChainID)
	if err != nil {
		return nil, err
	}
	res, err := n.Target.Transact(ctx, owner, ServerAddress, input, DefaultTxGas)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, fmt.Errorf("sim: register proxy: %w", res.Err)
	}
	if _, err := n.Target.Seal(); err != nil {
		return nil, err
	}
	return n, nil
}

// Relay proves the sealed transaction txHash on from and submits the proof
// to the registry at to on the other chain with method ("executeCall" or
// "acknowledgeCall"). The submitting transaction is left pending.
func (n *Network) Relay(ctx context.Context, from *Chain, txHash types.Hash, method string, gasLimit uint64) (*Result, error) {
	proof, err := from.Prove(txHash)
	if err != nil {
		return nil, err
	}
	var (
		to     *Chain
		target types.Address
		input  []byte
	)
	switch method {
	case "executeCall":
		to, target = n.Target, ServerAddress
		input, err = xcall.ServerABI.Pack(method, proof.Encode())
	case "acknowledgeCall":
		to, target = n.Source, ProxyAddress
		input, err = xcall.ProxyABI.Pack(method, proof.Encode())
	default:
		return nil, fmt.Errorf("%w: %s", xcall.ErrUnknownMethod, method)
	}
	if err != nil {
		return nil, err
	}
	return to.Transact(ctx, n.Relayer, target, input, gasLimit)
}

// RoundTrip runs one call from Client to Remote through every stage:
// prepare, request, execute and acknowledge. After each stage it seals the
// stage's block and as many empty blocks as the registries require on top.
// It returns the results of the four transactions.
func (n *Network) RoundTrip(ctx context.Context, user *geth.Account, dappSpecificID, callData []byte) ([]*Result, error) {
	stages := make([]*Result, 0, 4)
	step := func(c *Chain, res *Result, err error) error {
		if err != nil {
			return err
		}
		stages = append(stages, res)
		if res.Err != nil {
			return fmt.Errorf("sim: stage %d: %w", len(stages), res.Err)
		}
		for i := uint64(0); i <= n.confirmations; i++ {
			if _, err := c.Seal(); err != nil {
				return err
			}
		}
		return nil
	}

	input, err := xcall.ProxyABI.Pack("callContract", geth.ToGethAddress(TargetAddress), dappSpecificID, callData, n.Client.CallbackName)
	if err != nil {
		return nil, err
	}
	res, err := n.Source.Transact(ctx, user, ClientAddress, input, DefaultTxGas)
	if err := step(n.Source, res, err); err != nil {
		return stages, err
	}
	out, err := xcall.ProxyABI.Unpack("callContract", res.Return)
	if err != nil {
		return stages, err
	}

	input, err = xcall.ProxyABI.Pack("requestCall", out[0])
	if err != nil {
		return stages, err
	}
	res, err = n.Source.Transact(ctx, user, ProxyAddress, input, DefaultTxGas)
	if err := step(n.Source, res, err); err != nil {
		return stages, err
	}

	res, err = n.Relay(ctx, n.Source, res.Tx.Hash(), "executeCall", DefaultTxGas)
	if err := step(n.Target, res, err); err != nil {
		return stages, err
	}

	res, err = n.Relay(ctx, n.Target, res.Tx.Hash(), "acknowledgeCall", DefaultTxGas)
	if err := step(n.Source, res, err); err != nil {
		return stages, err
	}
	return stages, nil
}
