// Package scenario holds what the deployment scenarios share: the environment they run in and
// the operations that touch the chain.
package scenario

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/compilation"
	"github.com/leftasexercise/ethdeploy/datastore"
	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/pkg/logger"
)

// Chain is the view of the node a scenario needs. It is satisfied by *evm.Chain.
type Chain interface {
	Deploy(ctx context.Context, sender evm.Sender, req evm.DeployRequest) (*evm.Deployment, error)
	CallAndWait(ctx context.Context, sender evm.Sender, req evm.CallRequest) (*types.Receipt, error)
	Call(ctx context.Context, from common.Address, req evm.CallRequest) ([]any, error)
	Transfer(ctx context.Context, sender evm.Sender, to common.Address, value *big.Int) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	TraceBlockByNumber(ctx context.Context, number *big.Int) (*evm.BlockTrace, error)
	RevertReason(ctx context.Context, from common.Address, receipt *types.Receipt) (string, error)
}

var _ Chain = (*evm.Chain)(nil)

// Compiler turns a compilation spec into compiled contracts. It is satisfied by *compilation.Solc.
type Compiler interface {
	Compile(ctx context.Context, spec *compilation.Spec, allowPaths ...string) (*compilation.Result, error)
}

var _ Compiler = (*compilation.Solc)(nil)

// Environment is everything a scenario run depends on. It is created once per run.
type Environment struct {
	Logger      logger.Logger
	Chain       Chain
	Compiler    Compiler
	AddressBook datastore.MutableAddressBook
	Operations  operations.Bundle
	// Out receives the human readable progress of the scenario.
	Out io.Writer
}

// NewEnvironment returns an environment with an empty address book and a memory reporter. A nil
// out writes to stdout.
func NewEnvironment(
	getCtx func() context.Context, lggr logger.Logger, chain Chain, compiler Compiler, out io.Writer,
) Environment {
	if out == nil {
		out = os.Stdout
	}

	return Environment{
		Logger:      lggr,
		Chain:       chain,
		Compiler:    compiler,
		AddressBook: datastore.NewMemoryAddressBook(),
		Operations:  operations.NewBundle(getCtx, lggr, operations.NewMemoryReporter()),
		Out:         out,
	}
}

// Printf writes a progress line to the output of the environment.
func (e Environment) Printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format+"\n", args...)
}
