package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/proofgen"
	"github.com/eth2030/xcall/relay"
)

func newProveCmd(a *app) *cobra.Command {
	var (
		out   string
		check bool
	)
	cmd := &cobra.Command{
		Use:   "prove <txhash>",
		Short: "Fetch the inclusion proof of a mined transaction from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseTxHash(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			oracle, client, err := relay.DialRPCOracle(ctx, a.cfg.RPC.URL, a.cfg.RPC.Timeout, a.log)
			if err != nil {
				return err
			}
			defer client.Close()

			proof, err := proofgen.NewFetcher(client, a.log).ProveTransaction(ctx, hash)
			if err != nil {
				return err
			}
			if check {
				v := xcall.Verifier{Oracle: oracle, Confirmations: a.cfg.Demo.Confirmations}
				if _, err := v.Verify(ctx, proof); err != nil {
					return fmt.Errorf("proof rejected: %w", err)
				}
				a.log.Info("proof accepted", "tx", hash, "confirmations", a.cfg.Demo.Confirmations)
			}

			enc := hexutil.Encode(proof.Encode())
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), enc)
				return err
			}
			return os.WriteFile(out, []byte(enc+"\n"), 0o644)
		},
	}
	cmd.Flags().String("rpc-url", "", "JSON-RPC endpoint of the source chain node (overrides config)")
	cmd.Flags().Duration("rpc-timeout", 0, "timeout of each node query (overrides config)")
	cmd.Flags().Uint64("confirmations", 0, "blocks required on top of the proven block with --check (overrides config)")
	cmd.Flags().StringVar(&out, "out", "", "write the hex proof to this file instead of stdout")
	cmd.Flags().BoolVar(&check, "check", false, "verify the proof against the node before printing it")
	return cmd
}

func parseTxHash(s string) (types.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return types.Hash{}, fmt.Errorf("invalid transaction hash %q: %w", s, err)
	}
	if len(b) != len(types.Hash{}) {
		return types.Hash{}, fmt.Errorf("invalid transaction hash %q: want 32 bytes, have %d", s, len(b))
	}
	return types.BytesToHash(b), nil
}
