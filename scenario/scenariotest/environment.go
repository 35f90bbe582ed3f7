package scenariotest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/compilation"
	"github.com/leftasexercise/ethdeploy/pkg/logger"
	"github.com/leftasexercise/ethdeploy/scenario"
)

// NewEnvironment returns an environment for tests together with the buffer that receives its
// progress output.
func NewEnvironment(t *testing.T, chain scenario.Chain, compiler scenario.Compiler) (scenario.Environment, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}

	return scenario.NewEnvironment(t.Context, logger.Test(t), chain, compiler, out), out
}

// StaticSender is a Sender that only knows its address. It is meant for FakeChain, which never
// asks a sender to submit anything.
type StaticSender common.Address

var _ evm.Sender = StaticSender{}

func (s StaticSender) Address() common.Address { return common.Address(s) }

func (s StaticSender) Send(context.Context, evm.OnchainClient, *evm.Draft) (common.Hash, error) {
	return common.Hash{}, errors.New("static sender cannot submit transactions")
}

// FakeCompiler returns a fixed result and records the specs it was asked to compile.
type FakeCompiler struct {
	Result *compilation.Result
	Err    error
	Specs  []*compilation.Spec
}

var _ scenario.Compiler = (*FakeCompiler)(nil)

func (c *FakeCompiler) Compile(_ context.Context, spec *compilation.Spec, _ ...string) (*compilation.Result, error) {
	c.Specs = append(c.Specs, spec)
	if c.Err != nil {
		return nil, c.Err
	}

	return c.Result, nil
}

// ContractFixture is a compiled contract as the compiler reports it, with the ABI as JSON and the
// bytecode as hex.
type ContractFixture struct {
	ABI      string
	Bytecode string
}

// NewResult builds a compilation result holding the fixtures under a single source key.
func NewResult(t *testing.T, source string, contracts map[string]ContractFixture) *compilation.Result {
	t.Helper()

	type bytecode struct {
		Object string `json:"object"`
	}
	type evmOutput struct {
		Bytecode bytecode `json:"bytecode"`
	}
	type contract struct {
		ABI json.RawMessage `json:"abi"`
		EVM evmOutput       `json:"evm"`
	}

	compiled := make(map[string]contract, len(contracts))
	for name, c := range contracts {
		compiled[name] = contract{ABI: json.RawMessage(c.ABI), EVM: evmOutput{Bytecode: bytecode{Object: c.Bytecode}}}
	}

	out, err := json.Marshal(map[string]any{
		"contracts": map[string]any{source: compiled},
	})
	require.NoError(t, err)

	result, err := compilation.ParseOutput(out)
	require.NoError(t, err)

	return result
}
