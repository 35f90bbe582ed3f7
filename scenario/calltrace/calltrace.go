// Package calltrace deploys a small set of contracts that call and create each other, runs the
// call chain once and retrieves the execution trace of the block it was mined in.
package calltrace

import (
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/compilation"
	"github.com/leftasexercise/ethdeploy/datastore"
	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/scenario"
)

// Source holds the Echo, Root and Child contracts.
//
//go:embed CallTrace.sol
var Source string

const (
	// SourceKey is the key Source is compiled under.
	SourceKey = "CallTrace"

	DefaultGasLimit = 3_000_000
	// DefaultValue is passed to Echo and to Root.run.
	DefaultValue = 100

	label = "call-chain"
)

// DefaultOwner is the coinbase of a geth dev node.
var DefaultOwner = common.HexToAddress("0xd489f87665ed713E602290BE7c01269Fc129f4Ea")

var (
	// ErrEchoMismatch is returned when the deployed Echo does not return its argument.
	ErrEchoMismatch = errors.New("echo returned an unexpected value")
	// ErrTraceIncomplete is returned when the trace lacks a step of the call chain.
	ErrTraceIncomplete = errors.New("trace does not contain the expected call chain")
)

// Config describes one run of the scenario.
type Config struct {
	// GasLimit is used for both deployments. The call to run is estimated.
	GasLimit uint64 `json:"gasLimit"`
	Value    uint64 `json:"value"`
}

// DefaultConfig returns the configuration used against a local dev node.
func DefaultConfig() Config {
	return Config{GasLimit: DefaultGasLimit, Value: DefaultValue}
}

// Result is the outcome of a run.
type Result struct {
	Echo        common.Address  `json:"echo"`
	Root        common.Address  `json:"root"`
	Child       common.Address  `json:"child"`
	TxHash      common.Hash     `json:"txHash"`
	BlockNumber uint64          `json:"blockNumber"`
	Trace       *evm.BlockTrace `json:"trace"`
}

// Deps are the dependencies of RunCallChain.
type Deps struct {
	Env    scenario.Environment
	Sender evm.Sender
	Echo   *compilation.Contract
	Root   *compilation.Contract
}

// RunCallChain deploys Echo and Root, runs the call chain and traces its block.
var RunCallChain = operations.NewSequence(
	"run-call-chain",
	semver.MustParse("1.0.0"),
	"Deploys Echo and Root, runs the call chain and traces it",
	runCallChain,
)

// Run compiles Source and runs RunCallChain with transactions sent by sender.
func Run(env scenario.Environment, sender evm.Sender, cfg Config) (Result, error) {
	if cfg.GasLimit == 0 {
		return Result{}, errors.New("gas limit must be positive")
	}

	spec, err := compilation.NewInlineSpec(SourceKey, Source)
	if err != nil {
		return Result{}, err
	}
	compiled, err := env.Compiler.Compile(env.Operations.GetContext(), spec)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compile %s: %w", SourceKey, err)
	}

	deps := Deps{Env: env, Sender: sender}
	if deps.Echo, err = compiled.Contract(SourceKey, "Echo"); err != nil {
		return Result{}, err
	}
	if deps.Root, err = compiled.Contract(SourceKey, "Root"); err != nil {
		return Result{}, err
	}

	report, err := operations.ExecuteSequence(env.Operations, RunCallChain, deps, cfg)

	return report.Output, err
}

func runCallChain(b operations.Bundle, deps Deps, cfg Config) (Result, error) {
	var (
		ctx       = b.GetContext()
		env       = deps.Env
		chainDeps = scenario.ChainDeps{Chain: env.Chain, Sender: deps.Sender}
		value     = new(big.Int).SetUint64(cfg.Value)
		result    Result
	)

	_, err := operations.ExecuteOperation(b, scenario.DeployContractOp,
		scenario.DeployContractDeps{ChainDeps: chainDeps, Artifact: deps.Echo, AddressBook: env.AddressBook},
		scenario.DeployContractInput{Contract: "Echo", GasLimit: cfg.GasLimit, Labels: []string{label}})
	if err != nil {
		return result, err
	}
	if result.Echo, err = lookup(env.AddressBook, "Echo"); err != nil {
		return result, err
	}
	env.Printf("Deployed Echo contract at address %s", result.Echo.Hex())

	echoed, err := scenario.Query[*big.Int](ctx, env.Chain, deps.Sender.Address(), result.Echo, deps.Echo.ABI,
		"echo", value)
	if err != nil {
		return result, fmt.Errorf("failed to call echo: %w", err)
	}
	if echoed.Cmp(value) != 0 {
		return result, fmt.Errorf("echo(%s) = %s: %w", value, echoed, ErrEchoMismatch)
	}

	_, err = operations.ExecuteOperation(b, scenario.DeployContractOp,
		scenario.DeployContractDeps{ChainDeps: chainDeps, Artifact: deps.Root, AddressBook: env.AddressBook},
		scenario.DeployContractInput{
			Contract: "Root",
			GasLimit: cfg.GasLimit,
			Args:     []any{result.Echo},
			Labels:   []string{label},
		})
	if err != nil {
		return result, err
	}
	if result.Root, err = lookup(env.AddressBook, "Root"); err != nil {
		return result, err
	}
	env.Printf("Deployed Root contract at address %s", result.Root.Hex())

	env.Printf("Now invoking the run() method as a transaction")
	called, err := operations.ExecuteOperation(b, scenario.CallContractOp,
		scenario.CallContractDeps{ChainDeps: chainDeps, ABI: deps.Root.ABI},
		scenario.CallContractInput{Contract: "Root", Address: result.Root, Method: "run", Args: []any{value}})
	if err != nil {
		return result, err
	}
	receipt := called.Output.Receipt
	result.TxHash = receipt.TxHash
	result.BlockNumber = receipt.BlockNumber.Uint64()
	env.Printf("Done, transaction hash is %s in block %d", result.TxHash.Hex(), result.BlockNumber)

	if err := recordChild(env.AddressBook, receipt); err != nil {
		return result, err
	}
	if result.Child, err = lookup(env.AddressBook, "Child"); err != nil {
		return result, err
	}
	env.Printf("Child has been created at %s", result.Child.Hex())

	traced, err := operations.ExecuteOperation(b, scenario.TraceBlockOp, env.Chain,
		scenario.TraceBlockInput{BlockNumber: result.BlockNumber})
	if err != nil {
		return result, err
	}
	result.Trace = traced.Output

	indented, err := result.Trace.Indent()
	if err != nil {
		return result, err
	}
	env.Printf("%s", indented)

	tx, err := findTransaction(result.Trace, receipt)
	if err != nil {
		return result, err
	}

	return result, CheckCallChain(tx.Result, deps.Sender.Address(), result.Echo, result.Root, result.Child)
}

// recordChild adds the Child created by the call to the address book. The Child is the emitter of
// the first log of the receipt.
func recordChild(book datastore.MutableAddressBook, receipt *types.Receipt) error {
	if len(receipt.Logs) == 0 {
		return fmt.Errorf("transaction %s emitted no logs, child address unknown", receipt.TxHash.Hex())
	}
	child := receipt.Logs[0].Address

	return book.Add(datastore.AddressRef{
		Contract:    "Child",
		Address:     child,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Labels:      datastore.NewLabelSet(label),
	})
}

// lookup returns the address the named contract was last recorded at.
func lookup(book datastore.AddressBook, contract string) (common.Address, error) {
	ref, err := book.Get(contract)
	if err != nil {
		return common.Address{}, err
	}

	return ref.Address, nil
}

// findTransaction returns the trace of the receipt's transaction. Nodes that do not report the
// transaction hash in block traces are matched by position.
func findTransaction(trace *evm.BlockTrace, receipt *types.Receipt) (*evm.TxTrace, error) {
	tx, ok := trace.Find(receipt.TxHash)
	if !ok {
		idx := int(receipt.TransactionIndex)
		if idx >= len(trace.Transactions) {
			return nil, fmt.Errorf("block trace has no transaction %s: %w", receipt.TxHash.Hex(), ErrTraceIncomplete)
		}
		tx = &trace.Transactions[idx]
	}
	if tx.Result == nil {
		return nil, fmt.Errorf("transaction %s was not traced (%s): %w", receipt.TxHash.Hex(), tx.Error, ErrTraceIncomplete)
	}

	return tx, nil
}

type step struct {
	kind     string
	from, to common.Address
}

// CheckCallChain verifies that the trace of Root.run contains, in execution order, the direct call
// to Echo, the creation of Child, the call from the Child constructor to Echo, the call to
// Child.run and its call to Echo. Other frames may appear in between.
func CheckCallChain(frame *evm.CallFrame, caller, echo, root, child common.Address) error {
	if frame == nil {
		return fmt.Errorf("empty trace: %w", ErrTraceIncomplete)
	}

	want := []step{
		{"CALL", caller, root},
		{"CALL", root, echo},
		{"CREATE", root, child},
		{"CALL", child, echo},
		{"CALL", root, child},
		{"CALL", child, echo},
	}

	next := 0
	for _, f := range frame.Flatten() {
		if next < len(want) && f.Is(want[next].kind, want[next].from, want[next].to) {
			next++
		}
	}
	if next < len(want) {
		missing := make([]string, 0, len(want)-next)
		for _, s := range want[next:] {
			missing = append(missing, fmt.Sprintf("%s %s -> %s", s.kind, s.from.Hex(), s.to.Hex()))
		}

		return fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrTraceIncomplete)
	}

	return nil
}
