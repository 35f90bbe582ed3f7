// Package commands provides the cobra commands of the ethdeploy binaries.
//
// Every command loads its configuration, connects to the node, runs one scenario and optionally
// writes the operation reports of the run:
//
//	cmd := commands.New(commands.Config{}).DeployNFT()
//	if err := cmd.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
//
// Tests inject a fake chain and compiler through Config.Deps.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/leftasexercise/ethdeploy/pkg/logger"
)

// Config holds the configuration shared by the commands.
type Config struct {
	// Logger overrides the logger built from the configured log level. Optional.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// Commands provides a factory for creating the commands with shared configuration.
type Commands struct {
	cfg Config
}

// New creates a new Commands factory.
func New(cfg Config) *Commands {
	cfg.deps()

	return &Commands{cfg: cfg}
}

// DeployNFT creates the deploy-nft command.
func (c *Commands) DeployNFT() *cobra.Command {
	return newDeployNFTCmd(c.cfg)
}

// CallTrace creates the calltrace command.
func (c *Commands) CallTrace() *cobra.Command {
	return newCallTraceCmd(c.cfg)
}

// FundAccounts creates the fund-accounts command.
func (c *Commands) FundAccounts() *cobra.Command {
	return newFundAccountsCmd(c.cfg)
}
