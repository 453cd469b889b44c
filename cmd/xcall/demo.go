package main

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/eth2030/xcall/core/rawdb"
	"github.com/eth2030/xcall/geth"
	"github.com/eth2030/xcall/sim"
)

var stageNames = [...]string{"prepare", "request", "execute", "acknowledge"}

func newDemoCmd(a *app) *cobra.Command {
	var (
		calls  int
		dappID string
		data   string
		revert bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run calls through a simulated source and target chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			callData, err := hexutil.Decode(data)
			if err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}
			if calls < 1 {
				return fmt.Errorf("%w: --calls must be positive", ErrInvalidConfig)
			}
			db, err := rawdb.OpenLevelDB(a.cfg.Demo.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			n, err := sim.NewNetwork(ctx, a.cfg.Network(), db, a.log)
			if err != nil {
				return err
			}
			n.Remote.SetRevert(revert)
			user, err := geth.GenerateAccount()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for i := 0; i < calls; i++ {
				stages, err := n.RoundTrip(ctx, user, []byte(dappID), callData)
				printStages(w, i, stages)
				if err != nil {
					return err
				}
			}
			for _, cb := range n.Client.Callbacks() {
				fmt.Fprintf(w, "callback dapp=%q success=%t data=%s\n", cb.DappSpecificID, cb.Success, hexutil.Encode(cb.Data))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&calls, "calls", 1, "number of round trips to run")
	cmd.Flags().StringVar(&dappID, "dapp-id", "demo", "dapp-specific id passed back in the callback")
	cmd.Flags().StringVar(&data, "data", "0x", "calldata for the remote contract")
	cmd.Flags().BoolVar(&revert, "revert", false, "make the remote contract revert")
	cmd.Flags().String("datadir", "", "LevelDB directory for registry state (overrides config)")
	cmd.Flags().Uint64("confirmations", 0, "blocks required on top of a proven block (overrides config)")
	cmd.Flags().Uint64("callback-gas", 0, "gas forwarded to callbacks (overrides config)")
	cmd.Flags().Uint64("min-call-gas", 0, "gas forwarded to remote calls (overrides config)")
	return cmd
}

func printStages(w io.Writer, call int, stages []*sim.Result) {
	for i, res := range stages {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Fprintf(w, "call %d %-11s tx=%s logs=%d %s\n", call, stageNames[i], res.Tx.Hash(), len(res.Receipt.Logs), status)
	}
}
