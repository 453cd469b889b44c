// Command xcall builds, inspects and exercises cross-chain call proofs.
//
//	xcall prove --rpc-url http://node:8545 0x<txhash>   fetch a proof from a node
//	xcall inspect <proof hex | @file>                   decode and check a proof
//	xcall demo                                          run a call through a simulated network
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eth2030/xcall/log"
)

var (
	Version = "dev"
	Commit  = "none"
)

// app carries state shared by the subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg      *Config
	log      *log.Logger
	shutdown func(context.Context) error
}

func newRootCmd() (*cobra.Command, *app) {
	a := new(app)
	root := &cobra.Command{
		Use:           "xcall",
		Short:         "Cross-chain call proof tool",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "TOML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log verbosity (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	pf.String("trace-endpoint", "", "OTLP/HTTP endpoint spans are exported to (overrides config)")

	root.AddCommand(newProveCmd(a), newInspectCmd(a), newDemoCmd(a))
	return root, a
}

// close flushes exported spans.
func (a *app) close(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}
	return a.shutdown(ctx)
}

// setup loads the configuration and overlays flags set on the command line.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	log.SetDefault(logger)
	shutdown, err := setupTracing(cmd.Context(), cfg.Trace.Endpoint)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.shutdown = cfg, logger, shutdown
	return nil
}

// applyFlags copies subcommand flags that were set explicitly into cfg.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			err = apply()
		}
	}
	set("trace-endpoint", func() (e error) { cfg.Trace.Endpoint, e = flags.GetString("trace-endpoint"); return })
	set("rpc-url", func() (e error) { cfg.RPC.URL, e = flags.GetString("rpc-url"); return })
	set("rpc-timeout", func() (e error) { cfg.RPC.Timeout, e = flags.GetDuration("rpc-timeout"); return })
	set("datadir", func() (e error) { cfg.Demo.DataDir, e = flags.GetString("datadir"); return })
	set("confirmations", func() (e error) { cfg.Demo.Confirmations, e = flags.GetUint64("confirmations"); return })
	set("callback-gas", func() (e error) { cfg.Demo.CallbackGas, e = flags.GetUint64("callback-gas"); return })
	set("min-call-gas", func() (e error) { cfg.Demo.MinCallGas, e = flags.GetUint64("min-call-gas"); return })
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	if cerr := a.close(context.WithoutCancel(ctx)); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "xcall:", err)
		os.Exit(1)
	}
}
