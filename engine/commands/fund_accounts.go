package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/engine/commands/flags"
	"github.com/leftasexercise/ethdeploy/engine/config"
	"github.com/leftasexercise/ethdeploy/scenario/funding"
)

const gethIPC = "~/.ethereum/geth.ipc"

var (
	fundAccountsShort = "Fund accounts from the development account of a node"

	fundAccountsLong = longDesc(`
		Tops up every account to the target balance with transfers from the first account managed by
		the node. Accounts that already hold the target balance are skipped, so the command can be run
		repeatedly.

		The accounts are read from a YAML manifest, or a TOML manifest with a .toml extension:

		  accounts:
		    - name: owner
		      address: "0xFC2a2b9A68514E3315f0Bd2a29e900DC1a815a1D"

		Without a manifest a fixed set of development accounts is funded.
	`)

	fundAccountsExample = examples(`
		# Fund the default accounts through the IPC socket of a geth dev node
		fund-accounts

		# Fund the accounts of a manifest with 50 ether each
		fund-accounts --url http://127.0.0.1:8545 --accounts accounts.yml --target-ether 50
	`)
)

// newFundAccountsCmd creates the fund-accounts command.
func newFundAccountsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fund-accounts",
		Short:        fundAccountsShort,
		Long:         fundAccountsLong,
		Example:      fundAccountsExample,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev := flags.MustString(cmd.Flags().GetString("dev"))

			return run(cmd, cfg, func(s *session) error {
				return runFundAccounts(s, dev)
			})
		},
	}

	flags.Common(cmd)
	flags.Node(cmd, gethIPC)

	cmd.Flags().String("accounts", "", "YAML or TOML manifest of the accounts to fund (default: development accounts)")
	cmd.Flags().Uint64("target-ether", funding.DefaultTargetEther, "Target balance in ether")
	cmd.Flags().String("dev", "", "Account the funds are sent from (default: first account of the node)")

	return cmd
}

// runFundAccounts executes the fund-accounts scenario.
func runFundAccounts(s *session, dev string) error {
	accounts, err := config.LoadAccounts(s.cfg.Funding.AccountsFile)
	if err != nil {
		return err
	}

	fcfg := funding.Config{Accounts: accounts, Target: funding.Ether(s.cfg.Funding.TargetEther)}
	if dev != "" {
		if !common.IsHexAddress(dev) {
			return fmt.Errorf("invalid dev address %q", dev)
		}
		fcfg.Dev = common.HexToAddress(dev)
	}

	newSender := func(from common.Address) evm.Sender {
		return evm.NewNodeManagedSender(s.backend.RPC, from)
	}

	result, err := funding.Run(s.env, newSender, fcfg)
	if err != nil {
		return err
	}

	var transfers int
	for _, f := range result.Accounts {
		if !f.Skipped() {
			transfers++
		}
	}
	s.lggr.Infow("Funded accounts", "dev", result.Dev.Hex(), "accounts", len(result.Accounts), "transfers", transfers)

	return nil
}
