package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/compilation"
	"github.com/leftasexercise/ethdeploy/datastore"
	"github.com/leftasexercise/ethdeploy/operations"
)

var (
	// DeployContractOp deploys a compiled contract and records it in the address book.
	DeployContractOp = operations.NewOperation(
		"deploy-contract",
		semver.MustParse("1.0.0"),
		"Deploys a compiled contract",
		deployContract,
	)

	// CallContractOp sends a state changing contract call. A mined call with a failed status is an
	// error carrying the receipt and, if the node can tell, the revert reason.
	CallContractOp = operations.NewOperation(
		"call-contract",
		semver.MustParse("1.0.0"),
		"Sends a contract call and checks its status",
		callContract,
	)

	// FundAccountOp transfers ether to an account.
	FundAccountOp = operations.NewOperation(
		"fund-account",
		semver.MustParse("1.0.0"),
		"Transfers ether to an account",
		fundAccount,
	)

	// TraceBlockOp retrieves the call traces of all transactions of a block.
	TraceBlockOp = operations.NewOperation(
		"trace-block",
		semver.MustParse("1.0.0"),
		"Retrieves the call traces of a block",
		traceBlock,
	)
)

// ChainDeps are the dependencies of every operation that submits a transaction.
type ChainDeps struct {
	Chain  Chain
	Sender evm.Sender
}

type DeployContractDeps struct {
	ChainDeps
	Artifact    *compilation.Contract
	AddressBook datastore.MutableAddressBook
}

type DeployContractInput struct {
	Contract string   `json:"contract"`
	GasLimit uint64   `json:"gasLimit"`
	Args     []any    `json:"args,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

type DeployContractOutput struct {
	Address common.Address `json:"address"`
	Receipt *types.Receipt `json:"receipt"`
}

func deployContract(
	b operations.Bundle, deps DeployContractDeps, input DeployContractInput,
) (DeployContractOutput, error) {
	if deps.Artifact == nil {
		return DeployContractOutput{}, fmt.Errorf("no compiled artifact for %s", input.Contract)
	}

	d, err := deps.Chain.Deploy(b.GetContext(), deps.Sender, evm.DeployRequest{
		ABI:      deps.Artifact.ABI,
		Bytecode: deps.Artifact.Bytecode,
		GasLimit: input.GasLimit,
		Args:     input.Args,
	})
	if err != nil {
		return DeployContractOutput{}, fmt.Errorf("failed to deploy %s: %w", input.Contract, err)
	}

	b.Logger.Infow("Deployed contract",
		"contract", input.Contract, "address", d.Address, "tx", d.TxHash, "gasUsed", d.Receipt.GasUsed)

	if deps.AddressBook != nil {
		ref := datastore.AddressRef{
			Contract:    input.Contract,
			Address:     d.Address,
			TxHash:      d.TxHash,
			BlockNumber: d.Receipt.BlockNumber.Uint64(),
			GasUsed:     d.Receipt.GasUsed,
			Labels:      datastore.NewLabelSet(input.Labels...),
		}
		if err := deps.AddressBook.Add(ref); err != nil {
			return DeployContractOutput{}, fmt.Errorf("failed to record %s: %w", input.Contract, err)
		}
	}

	return DeployContractOutput{Address: d.Address, Receipt: d.Receipt}, nil
}

type CallContractDeps struct {
	ChainDeps
	ABI abi.ABI
}

type CallContractInput struct {
	Contract string         `json:"contract"`
	Address  common.Address `json:"address"`
	Method   string         `json:"method"`
	Args     []any          `json:"args,omitempty"`
	// GasLimit of zero lets the node estimate the gas.
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

type CallContractOutput struct {
	Receipt *types.Receipt `json:"receipt"`
}

func callContract(
	b operations.Bundle, deps CallContractDeps, input CallContractInput,
) (CallContractOutput, error) {
	ctx := b.GetContext()

	receipt, err := deps.Chain.CallAndWait(ctx, deps.Sender, evm.CallRequest{
		Address:  input.Address,
		ABI:      deps.ABI,
		Method:   input.Method,
		Args:     input.Args,
		GasLimit: input.GasLimit,
	})
	if err != nil {
		return CallContractOutput{}, fmt.Errorf("failed to call %s.%s: %w", input.Contract, input.Method, err)
	}

	if err := evm.VerifyCall(receipt); err != nil {
		var cerr *evm.CallError
		if errors.As(err, &cerr) {
			cerr.Reason = revertReason(ctx, b, deps.ChainDeps, receipt)
		}

		return CallContractOutput{Receipt: receipt}, err
	}

	b.Logger.Infow("Called contract",
		"contract", input.Contract, "method", input.Method, "tx", receipt.TxHash, "block", receipt.BlockNumber)

	return CallContractOutput{Receipt: receipt}, nil
}

type FundAccountInput struct {
	Account common.Address `json:"account"`
	Amount  *big.Int       `json:"amount"`
}

type FundAccountOutput struct {
	Receipt *types.Receipt `json:"receipt"`
}

func fundAccount(b operations.Bundle, deps ChainDeps, input FundAccountInput) (FundAccountOutput, error) {
	ctx := b.GetContext()

	receipt, err := deps.Chain.Transfer(ctx, deps.Sender, input.Account, input.Amount)
	if err != nil {
		return FundAccountOutput{}, fmt.Errorf("failed to transfer to %s: %w", input.Account.Hex(), err)
	}
	if err := evm.VerifyCall(receipt); err != nil {
		return FundAccountOutput{Receipt: receipt}, err
	}

	return FundAccountOutput{Receipt: receipt}, nil
}

type TraceBlockInput struct {
	BlockNumber uint64 `json:"blockNumber"`
}

func traceBlock(b operations.Bundle, chain Chain, input TraceBlockInput) (*evm.BlockTrace, error) {
	trace, err := chain.TraceBlockByNumber(b.GetContext(), new(big.Int).SetUint64(input.BlockNumber))
	if err != nil {
		return nil, err
	}
	b.Logger.Debugw("Traced block", "block", input.BlockNumber, "transactions", len(trace.Transactions))

	return trace, nil
}

// revertReason asks the node why a call failed. The reason is best effort and only logged when it
// cannot be determined.
func revertReason(ctx context.Context, b operations.Bundle, deps ChainDeps, receipt *types.Receipt) string {
	reason, err := deps.Chain.RevertReason(ctx, deps.Sender.Address(), receipt)
	if err != nil {
		b.Logger.Warnw("Could not determine revert reason", "tx", receipt.TxHash, "error", err)
		return ""
	}

	return reason
}

// Query performs a read-only call of a method with a single return value and converts the value
// to T.
func Query[T any](
	ctx context.Context, chain Chain, from, address common.Address, contractABI abi.ABI, method string, args ...any,
) (T, error) {
	var zero T

	out, err := chain.Call(ctx, from, evm.CallRequest{Address: address, ABI: contractABI, Method: method, Args: args})
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s returned %d values, expected 1", method, len(out))
	}

	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, expected %T", method, out[0], zero)
	}

	return v, nil
}
