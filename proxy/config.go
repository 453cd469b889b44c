package proxy

import (
	"errors"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/gas"
	"github.com/eth2030/xcall/relay"
)

// DefaultCallbackGas is the minimum budget forwarded to a callback.
const DefaultCallbackGas = 100_000

// Config configures a call registry.
type Config struct {
	// Address is the registry's own address on the source chain.
	Address types.Address
	// Server is the execution registry on the target chain this proxy
	// sends calls to and accepts acknowledgements from.
	Server types.Address
	// Relay vouches for target-chain headers.
	Relay         relay.Oracle
	Confirmations uint64

	Gas         gas.Schedule
	CallbackGas uint64
}

// DefaultConfig returns a config with the default gas schedule. Address,
// Server and Relay must still be set.
func DefaultConfig() Config {
	return Config{
		Gas:         gas.DefaultSchedule(),
		CallbackGas: DefaultCallbackGas,
	}
}

// Validate checks the config for missing fields.
func (c *Config) Validate() error {
	if c.Address.IsZero() {
		return errors.New("proxy: address not set")
	}
	if c.Server.IsZero() {
		return errors.New("proxy: server not set")
	}
	if c.Relay == nil {
		return errors.New("proxy: relay not set")
	}
	return c.Gas.Validate()
}
