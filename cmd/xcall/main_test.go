package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/xcall/core/rawdb"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/log"
	"github.com/eth2030/xcall/sim"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	defer a.close(context.Background())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
	require.Equal(t, sim.DefaultConfig(), cfg.Network())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "xcall.toml", `
[log]
level = "debug"
format = "json"

[rpc]
url = "http://node:8545"
timeout = "3s"

[demo]
datadir = "/tmp/xcall"
confirmations = 2
callback_name = "done"

[gas]
proof_base = 1000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, path, cfg.ConfigFile)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "http://node:8545", cfg.RPC.URL)
	require.Equal(t, 3*time.Second, cfg.RPC.Timeout)
	require.Equal(t, "/tmp/xcall", cfg.Demo.DataDir)
	require.Equal(t, uint64(2), cfg.Network().Confirmations)
	require.Equal(t, "done", cfg.Network().CallbackName)
	require.Equal(t, uint64(1000), cfg.Schedule().ProofBase)

	// Keys absent from the file keep their defaults.
	def := DefaultConfig()
	require.Equal(t, def.Gas.Reserve, cfg.Gas.Reserve)
	require.Equal(t, def.Demo.SourceChainID, cfg.Demo.SourceChainID)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, ErrConfigFileNotFound)

	_, err = LoadConfig(writeFile(t, "unknown.toml", "[demo]\nblocks = 3\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Contains(t, err.Error(), "demo.blocks")

	_, err = LoadConfig(writeFile(t, "broken.toml", "[demo\n"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"level", func(c *Config) { c.Log.Level = "loud" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
		{"timeout", func(c *Config) { c.RPC.Timeout = -time.Second }},
		{"zero chain", func(c *Config) { c.Demo.SourceChainID = 0 }},
		{"same chain", func(c *Config) { c.Demo.TargetChainID = c.Demo.SourceChainID }},
		{"callback", func(c *Config) { c.Demo.CallbackName = "" }},
		{"schedule", func(c *Config) { c.Gas.ProofBase = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := writeFile(t, "bad.toml", "[log]\nlevel = \"loud\"\n")

	_, err := run(t, "--config", path, "inspect", "0x00")
	require.ErrorIs(t, err, ErrInvalidConfig)

	// With the level fixed on the command line the proof itself is rejected.
	_, err = run(t, "--config", path, "--log-level", "error", "inspect", "0x00")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestParseTxHash(t *testing.T) {
	h, err := parseTxHash("0x" + strings.Repeat("ab", 32))
	require.NoError(t, err)
	require.Equal(t, byte(0xab), h[31])

	_, err = parseTxHash("0x1234")
	require.Error(t, err)
	_, err = parseTxHash("zz")
	require.Error(t, err)
}

func TestDemoCommand(t *testing.T) {
	out, err := run(t, "--log-level", "error", "demo", "--datadir", t.TempDir(), "--calls", "2", "--data", "0x01")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, "acknowledge"))
	require.Equal(t, 2, strings.Count(out, "callback dapp=\"demo\" success=true"))

	out, err = run(t, "--log-level", "error", "demo", "--revert")
	require.NoError(t, err)
	require.Contains(t, out, "success=false")
}

func TestInspectCommand(t *testing.T) {
	n, err := sim.NewNetwork(context.Background(), sim.DefaultConfig(), rawdb.NewMemoryDB(), log.Discard())
	require.NoError(t, err)
	user, err := geth.GenerateAccount()
	require.NoError(t, err)
	stages, err := n.RoundTrip(context.Background(), user, []byte("1"), []byte{0x01})
	require.NoError(t, err)

	proof, err := n.Source.Prove(stages[1].Tx.Hash())
	require.NoError(t, err)
	path := writeFile(t, "proof.hex", hexutil.Encode(proof.Encode())+"\n")

	out, err := run(t, "--log-level", "error", "inspect", "@"+path)
	require.NoError(t, err)
	require.Contains(t, out, "tx trie  member")
	require.Contains(t, out, "rc trie  member")
	require.Contains(t, out, "status=success")
	require.Contains(t, out, "CallRequested")
	require.Contains(t, out, stages[1].Tx.Hash().Hex())

	// Corrupting a receipt node breaks only the receipt check.
	proof.ReceiptNodes[0] = append([]byte{}, proof.ReceiptNodes[0]...)
	proof.ReceiptNodes[0][len(proof.ReceiptNodes[0])-1] ^= 0xff
	out, err = run(t, "--log-level", "error", "inspect", hexutil.Encode(proof.Encode()))
	require.NoError(t, err)
	require.Contains(t, out, "tx trie  member")
	require.NotContains(t, out, "rc trie  member")
}

func TestTracingDisabledByDefault(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	cfg := DefaultConfig()
	cfg.Trace.Endpoint = "localhost:4318"
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	cfg.Trace.Endpoint = "http://localhost:4318/v1/traces"
	require.NoError(t, cfg.Validate())
}
