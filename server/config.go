package server

import (
	"errors"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/gas"
)

// DefaultMinCallGas is the minimum budget forwarded to a remote contract.
const DefaultMinCallGas = 200_000

// Config configures an execution registry.
type Config struct {
	// Address is the registry's own address on the target chain.
	Address types.Address
	// Owner is the only account allowed to register proxies.
	Owner types.Address

	Gas        gas.Schedule
	MinCallGas uint64
}

// DefaultConfig returns a config with the default gas schedule. Address
// and Owner must still be set.
func DefaultConfig() Config {
	return Config{Gas: gas.DefaultSchedule(), MinCallGas: DefaultMinCallGas}
}

// Validate checks the config for missing fields.
func (c *Config) Validate() error {
	if c.Address.IsZero() {
		return errors.New("server: address not set")
	}
	if c.Owner.IsZero() {
		return errors.New("server: owner not set")
	}
	return c.Gas.Validate()
}

// ProxyConfig is the trust configuration of one registered proxy.
type ProxyConfig struct {
	// Confirmations is the number of blocks required on top of a request.
	Confirmations uint64
	// ChainID identifies the proxy's chain in request identifiers.
	ChainID uint64
}
