package commands

import (
	"context"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/compilation"
	"github.com/leftasexercise/ethdeploy/engine/config"
	"github.com/leftasexercise/ethdeploy/pkg/logger"
	"github.com/leftasexercise/ethdeploy/scenario"
)

// Backend is a connected node.
type Backend struct {
	Chain scenario.Chain
	// RPC carries the eth_sendTransaction calls of the node managed signer.
	RPC evm.RPCCaller
	// Close releases the connection. Optional.
	Close func()
}

// ConnectFunc connects to the node described by the config.
type ConnectFunc func(ctx context.Context, lggr logger.Logger, cfg config.NodeConfig) (*Backend, error)

// CompilerFunc returns the compiler used by the scenarios.
type CompilerFunc func(lggr logger.Logger, cfg config.CompilerConfig) scenario.Compiler

// defaultConnect is the production implementation that dials the node.
func defaultConnect(ctx context.Context, lggr logger.Logger, cfg config.NodeConfig) (*Backend, error) {
	mode := evm.ModeStandard
	if cfg.PoA {
		mode = evm.ModePoA
	}

	conn, err := evm.Connect(ctx, lggr, evm.ConnectionConfig{
		Endpoint:           cfg.URL,
		Mode:               mode,
		DialAttempts:       cfg.DialAttempts,
		HealthCheckTimeout: cfg.HealthCheckTimeout,
	})
	if err != nil {
		return nil, err
	}

	opts := []evm.SubmitOption{evm.WithWaitTimeout(cfg.WaitTimeout)}
	if cfg.PollInterval > 0 {
		opts = append(opts, evm.WithPollInterval(cfg.PollInterval))
	}
	chain := evm.NewChain(conn, opts...)

	return &Backend{Chain: chain, RPC: chain.RPC, Close: conn.Close}, nil
}

// defaultCompiler is the production implementation that runs the solc executable.
func defaultCompiler(lggr logger.Logger, cfg config.CompilerConfig) scenario.Compiler {
	return compilation.NewSolc(lggr, compilation.WithBinary(cfg.Binary))
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// Connect connects to the node.
	// Default: evm.Connect
	Connect ConnectFunc

	// NewCompiler returns the Solidity compiler.
	// Default: compilation.NewSolc
	NewCompiler CompilerFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.Connect == nil {
		d.Connect = defaultConnect
	}
	if d.NewCompiler == nil {
		d.NewCompiler = defaultCompiler
	}
}
