package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/datastore"
	"github.com/leftasexercise/ethdeploy/engine/commands/flags"
	"github.com/leftasexercise/ethdeploy/engine/config"
	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/pkg/logger"
	"github.com/leftasexercise/ethdeploy/scenario"
)

// session is the state of a single command run.
type session struct {
	cfg     *config.Config
	lggr    logger.Logger
	backend *Backend
	env     scenario.Environment
}

// openSession loads the config of the command, connects to the node and creates the environment
// the scenario runs in.
func openSession(cmd *cobra.Command, cfg Config) (*session, error) {
	deps := cfg.deps()

	conf, err := config.Load(
		flags.MustString(cmd.Flags().GetString("config")),
		cmd.Flags(),
		flags.ConfigKeys(cmd.Flags()),
	)
	if err != nil {
		return nil, err
	}

	lggr := cfg.Logger
	if lggr == nil {
		if lggr, err = logger.NewWithLevel(conf.Log.Level); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	backend, err := deps.Connect(cmd.Context(), lggr.Named("node"), conf.Node)
	if err != nil {
		return nil, err
	}

	compiler := deps.NewCompiler(lggr.Named("compiler"), conf.Compiler)

	return &session{
		cfg:     conf,
		lggr:    lggr,
		backend: backend,
		env:     scenario.NewEnvironment(cmd.Context, lggr, backend.Chain, compiler, cmd.OutOrStdout()),
	}, nil
}

// owner returns the configured owner, the zero address when none is configured.
func (s *session) owner() (common.Address, error) {
	owner := s.cfg.Signer.Owner
	if owner == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(owner) {
		return common.Address{}, fmt.Errorf("invalid owner address %q", owner)
	}

	return common.HexToAddress(owner), nil
}

// sender returns the sender selected by the signer config.
func (s *session) sender() (evm.Sender, error) {
	strategy, err := evm.ParseSignerStrategy(s.cfg.Signer.Strategy)
	if err != nil {
		return nil, err
	}

	owner, err := s.owner()
	if err != nil {
		return nil, err
	}

	sender, err := evm.NewSender(strategy, s.backend.RPC, evm.Account{Address: owner, Key: s.cfg.Signer.Key})
	if err != nil {
		return nil, err
	}
	s.lggr.Infow("Sending transactions", "signer", strategy, "from", sender.Address().Hex())

	return sender, nil
}

// close prints the contracts deployed by the run, writes the operation reports when a report path
// is configured and closes the connection.
func (s *session) close() error {
	if s.backend.Close != nil {
		defer s.backend.Close()
	}

	printAddressBook(s.env.Out, s.env.AddressBook)

	if s.cfg.Report == "" {
		return nil
	}

	return writeReports(s.cfg.Report, s.env.Operations.Reporter())
}

// printAddressBook lists the recorded contracts in the order they were deployed.
func printAddressBook(w io.Writer, book datastore.AddressBook) {
	refs := book.Fetch()
	if len(refs) == 0 {
		return
	}

	fmt.Fprintln(w, "Deployed contracts:")
	for _, ref := range refs {
		fmt.Fprintf(w, "  %-8s %s block %d tx %s", ref.Contract, ref.Address.Hex(), ref.BlockNumber, ref.TxHash.Hex())
		if labels := ref.Labels.String(); labels != "" {
			fmt.Fprintf(w, " [%s]", labels)
		}
		fmt.Fprintln(w)
	}
}

func writeReports(path string, reporter operations.Reporter) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return operations.WriteReports(f, reporter)
}

// run opens a session, runs the scenario and closes the session. The reports are written even
// when the scenario fails.
func run(cmd *cobra.Command, cfg Config, scenarioFn func(*session) error) (err error) {
	s, err := openSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.close())
	}()

	return scenarioFn(s)
}
