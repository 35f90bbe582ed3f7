package commands

import (
	"github.com/spf13/cobra"

	"github.com/leftasexercise/ethdeploy/engine/commands/flags"
	"github.com/leftasexercise/ethdeploy/scenario/calltrace"
)

var (
	callTraceShort = "Trace a chain of contract calls"

	callTraceLong = longDesc(`
		Deploys the Echo and Root contracts, invokes Root.run as a transaction and retrieves the call
		trace of its block with debug_traceBlockByNumber. The trace is printed and checked to contain
		the calls and the creation of the Child contract in causal order.

		The node must expose the debug API.
	`)

	callTraceExample = examples(`
		# Run against a geth dev node with its coinbase
		calltrace

		# Sign locally instead of with an unlocked account
		calltrace --signer local --owner 0xFC2a2b9A68514E3315f0Bd2a29e900DC1a815a1D --key 0xc65f...
	`)
)

// newCallTraceCmd creates the calltrace command.
func newCallTraceCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "calltrace",
		Short:        callTraceShort,
		Long:         callTraceLong,
		Example:      callTraceExample,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gas := flags.MustUint64(cmd.Flags().GetUint64("gas"))

			return run(cmd, cfg, func(s *session) error {
				return runCallTrace(s, gas)
			})
		},
	}

	flags.Common(cmd)
	flags.Node(cmd, localNodeURL)
	flags.Signer(cmd, flags.SignerDefaults{Strategy: "node", Owner: calltrace.DefaultOwner.Hex()})
	flags.Gas(cmd, calltrace.DefaultGasLimit)

	return cmd
}

// runCallTrace executes the calltrace scenario.
func runCallTrace(s *session, gas uint64) error {
	sender, err := s.sender()
	if err != nil {
		return err
	}

	result, err := calltrace.Run(s.env, sender, calltrace.Config{GasLimit: gas, Value: calltrace.DefaultValue})
	if err != nil {
		return err
	}

	s.lggr.Infow("Call chain verified",
		"tx", result.TxHash.Hex(), "block", result.BlockNumber, "child", result.Child.Hex())

	return nil
}
