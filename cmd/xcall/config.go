package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/eth2030/xcall/gas"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/sim"
)

// Configuration errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config is the tool configuration as read from a TOML file.
type Config struct {
	Log   LogConfig   `toml:"log"`
	RPC   RPCConfig   `toml:"rpc"`
	Trace TraceConfig `toml:"trace"`
	Demo  DemoConfig  `toml:"demo"`
	Gas   GasConfig   `toml:"gas"`

	// ConfigFile is the path the configuration was loaded from, if any.
	ConfigFile string `toml:"-"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// RPCConfig points at the node proofs are fetched from.
type RPCConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// TraceConfig enables span export. An empty endpoint disables it.
type TraceConfig struct {
	Endpoint string `toml:"endpoint"` // OTLP/HTTP URL, e.g. http://localhost:4318/v1/traces
}

// DemoConfig parameterizes the simulated two-chain network.
type DemoConfig struct {
	DataDir       string `toml:"datadir"` // empty keeps registry state in memory
	SourceChainID uint64 `toml:"source_chain_id"`
	TargetChainID uint64 `toml:"target_chain_id"`
	Confirmations uint64 `toml:"confirmations"`
	CallbackGas   uint64 `toml:"callback_gas"`
	MinCallGas    uint64 `toml:"min_call_gas"`
	CallbackName  string `toml:"callback_name"`
}

// GasConfig overrides the verification gas schedule.
type GasConfig struct {
	ProofBase    uint64 `toml:"proof_base"`
	ProofPerNode uint64 `toml:"proof_per_node"`
	Reserve      uint64 `toml:"reserve"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	demo := sim.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		RPC: RPCConfig{URL: "http://localhost:8545", Timeout: 10 * time.Second},
		Demo: DemoConfig{
			SourceChainID: demo.SourceChainID,
			TargetChainID: demo.TargetChainID,
			Confirmations: demo.Confirmations,
			CallbackGas:   demo.CallbackGas,
			MinCallGas:    demo.MinCallGas,
			CallbackName:  demo.CallbackName,
		},
		Gas: GasConfig{
			ProofBase:    demo.Gas.ProofBase,
			ProofPerNode: demo.Gas.ProofPerNode,
			Reserve:      demo.Gas.Reserve,
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults. An empty path
// returns the defaults. Keys the tool does not know are rejected.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	cfg.ConfigFile = path
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Trace.Endpoint != "" && !strings.HasPrefix(c.Trace.Endpoint, "http://") && !strings.HasPrefix(c.Trace.Endpoint, "https://") {
		return fmt.Errorf("%w: trace endpoint must be an http(s) URL", ErrInvalidConfig)
	}
	if c.RPC.Timeout < 0 {
		return fmt.Errorf("%w: negative rpc timeout", ErrInvalidConfig)
	}
	if c.Demo.SourceChainID == 0 || c.Demo.TargetChainID == 0 {
		return fmt.Errorf("%w: chain ids must be non-zero", ErrInvalidConfig)
	}
	if c.Demo.SourceChainID == c.Demo.TargetChainID {
		return fmt.Errorf("%w: source and target chain ids must differ", ErrInvalidConfig)
	}
	if c.Demo.CallbackName == "" {
		return fmt.Errorf("%w: empty callback name", ErrInvalidConfig)
	}
	if err := c.Schedule().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Schedule returns the configured gas schedule.
func (c *Config) Schedule() gas.Schedule {
	return gas.Schedule{
		ProofBase:    c.Gas.ProofBase,
		ProofPerNode: c.Gas.ProofPerNode,
		Reserve:      c.Gas.Reserve,
	}
}

// Network returns the simulated network configuration.
func (c *Config) Network() sim.Config {
	return sim.Config{
		SourceChainID: c.Demo.SourceChainID,
		TargetChainID: c.Demo.TargetChainID,
		Confirmations: c.Demo.Confirmations,
		Gas:           c.Schedule(),
		CallbackGas:   c.Demo.CallbackGas,
		MinCallGas:    c.Demo.MinCallGas,
		CallbackName:  c.Demo.CallbackName,
	}
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger() (*log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.NewWithFormat(os.Stderr, c.Log.Format, level)
}
