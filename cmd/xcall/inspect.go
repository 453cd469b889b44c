package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/gas"
	"github.com/eth2030/xcall/trie"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <proof hex | @file>",
		Short: "Decode a proof and check it against its own header",
		Long: `Decode a proof and check it against its own header.

The trie checks only show that the proof is internally consistent. Whether
the header is canonical is for a relay to decide.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readProofArg(args[0])
			if err != nil {
				return err
			}
			proof, err := xcall.DecodeProof(raw)
			if err != nil {
				return err
			}
			return describeProof(cmd.OutOrStdout(), proof, a.cfg.Schedule())
		},
	}
}

// readProofArg accepts a hex proof or @path naming a file holding one.
func readProofArg(arg string) ([]byte, error) {
	text := arg
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "0x") {
		text = "0x" + text
	}
	b, err := hexutil.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("proof is not hex: %w", err)
	}
	return b, nil
}

func describeProof(w io.Writer, p *xcall.Proof, sched gas.Schedule) error {
	header, err := types.DecodeHeader(p.Header)
	if err != nil {
		return err
	}
	tx, err := types.DecodeTransaction(p.Tx)
	if err != nil {
		return err
	}
	receipt, err := types.DecodeReceipt(p.Receipt)
	if err != nil {
		return err
	}

	to := "create"
	if tx.To != nil {
		to = tx.To.Hex()
	}
	status := "failed"
	if receipt.Succeeded() {
		status = "success"
	}
	txRes := trie.VerifyValue(header.TxHash, p.Path, p.TxNodes, p.Tx)
	receiptRes := trie.VerifyValue(header.ReceiptHash, p.Path, p.ReceiptNodes, p.Receipt)

	fmt.Fprintf(w, "header   number=%d hash=%s\n", header.NumberU64(), header.Hash())
	fmt.Fprintf(w, "tx       hash=%s type=%d nonce=%d gas=%d to=%s\n", tx.Hash(), tx.Type, tx.Nonce, tx.Gas, to)
	fmt.Fprintf(w, "receipt  status=%s cumulativeGas=%d logs=%d\n", status, receipt.CumulativeGasUsed, len(receipt.Logs))
	fmt.Fprintf(w, "tx trie  %s\n", describeResult(txRes))
	fmt.Fprintf(w, "rc trie  %s\n", describeResult(receiptRes))
	fmt.Fprintf(w, "gas      verification=%d nodes=%d\n", sched.VerificationCost(p.NodeCount()), p.NodeCount())

	for i, l := range receipt.Logs {
		fmt.Fprintf(w, "log %d    %s\n", i, describeLog(l))
	}
	return nil
}

func describeResult(r trie.Result) string {
	if r.Included() {
		return r.Outcome.String()
	}
	return fmt.Sprintf("%s (%s)", r.Outcome, r.Reason)
}

func describeLog(l *types.Log) string {
	if len(l.Topics) == 0 {
		return fmt.Sprintf("emitter=%s anonymous", l.Address)
	}
	switch l.Topics[0] {
	case xcall.CallPreparedID:
		if e, err := xcall.ParseCallPrepared(l); err == nil {
			return fmt.Sprintf("CallPrepared emitter=%s callId=%s", l.Address, e.CallID.Dec())
		}
	case xcall.CallRequestedID:
		if e, err := xcall.ParseCallRequested(l); err == nil {
			return fmt.Sprintf("CallRequested emitter=%s callId=%s caller=%s server=%s contract=%s data=%s",
				l.Address, e.CallID.Dec(), e.Caller, e.RemoteServer, e.RemoteContract, hexutil.Encode(e.CallData))
		}
	case xcall.CallExecutedID:
		if e, err := xcall.ParseCallExecuted(l); err == nil {
			return fmt.Sprintf("CallExecuted emitter=%s callId=%s proxy=%s success=%t data=%s",
				l.Address, e.CallID.Dec(), e.RemoteRPCProxy, e.Success, hexutil.Encode(e.Data))
		}
	case xcall.CallAcknowledgedID:
		if e, err := xcall.ParseCallAcknowledged(l); err == nil {
			return fmt.Sprintf("CallAcknowledged emitter=%s callId=%s success=%t", l.Address, e.CallID.Dec(), e.Success)
		}
	}
	return fmt.Sprintf("emitter=%s topic=%s", l.Address, l.Topics[0])
}
