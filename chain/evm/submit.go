package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SubmitOptions controls how submitted transactions are awaited.
type SubmitOptions struct {
	// PollInterval is the receipt polling interval, DefaultPollInterval when zero.
	PollInterval time.Duration
	// WaitTimeout bounds the wait for a receipt. Zero waits until the context is done.
	WaitTimeout time.Duration
}

// SubmitOption is a function that modifies SubmitOptions.
type SubmitOption func(*SubmitOptions)

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) SubmitOption {
	return func(o *SubmitOptions) {
		o.PollInterval = d
	}
}

// WithWaitTimeout bounds the time spent waiting for a receipt.
func WithWaitTimeout(d time.Duration) SubmitOption {
	return func(o *SubmitOptions) {
		o.WaitTimeout = d
	}
}

func applySubmitOptions(opts []SubmitOption) SubmitOptions {
	o := SubmitOptions{PollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// DeployRequest describes a contract creation.
type DeployRequest struct {
	// ABI is used to pack the constructor arguments.
	ABI abi.ABI
	// Bytecode is the creation code without constructor arguments.
	Bytecode []byte
	// GasLimit is required, creations are never estimated.
	GasLimit uint64
	Args     []any
	Value    *big.Int
}

// Deployment is the outcome of a successful contract creation.
type Deployment struct {
	Address common.Address
	TxHash  common.Hash
	Receipt *types.Receipt
}

// Deploy sends a contract creation from sender, waits for its receipt and verifies that a
// contract was created. A *DeploymentError carrying the receipt is returned otherwise.
func Deploy(
	ctx context.Context, client OnchainClient, sender Sender, req DeployRequest, opts ...SubmitOption,
) (*Deployment, error) {
	if len(req.Bytecode) == 0 {
		return nil, errors.New("bytecode is required")
	}
	if req.GasLimit == 0 {
		return nil, errors.New("gas limit is required for contract creation")
	}

	packed, err := req.ABI.Pack("", req.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack constructor arguments: %w", err)
	}

	data := make([]byte, 0, len(req.Bytecode)+len(packed))
	data = append(data, req.Bytecode...)
	data = append(data, packed...)

	draft := &Draft{
		Gas:   req.GasLimit,
		Value: req.Value,
		Data:  data,
	}

	receipt, err := submit(ctx, client, sender, draft, applySubmitOptions(opts))
	if err != nil {
		return nil, err
	}

	if err := VerifyCreation(receipt); err != nil {
		return nil, err
	}

	return &Deployment{
		Address: receipt.ContractAddress,
		TxHash:  receipt.TxHash,
		Receipt: receipt,
	}, nil
}

// CallRequest describes a state changing contract call.
type CallRequest struct {
	Address common.Address
	ABI     abi.ABI
	Method  string
	Args    []any
	// GasLimit of zero estimates the gas with eth_estimateGas.
	GasLimit uint64
	Value    *big.Int
}

// CallAndWait sends a contract call from sender and returns its receipt once mined. A receipt with
// a failed status is returned as is, callers decide with VerifyCall.
func CallAndWait(
	ctx context.Context, client OnchainClient, sender Sender, req CallRequest, opts ...SubmitOption,
) (*types.Receipt, error) {
	data, err := req.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack arguments for %s: %w", req.Method, err)
	}

	to := req.Address
	draft := &Draft{
		To:    &to,
		Gas:   req.GasLimit,
		Value: req.Value,
		Data:  data,
	}

	return submit(ctx, client, sender, draft, applySubmitOptions(opts))
}

// Transfer sends value wei from sender to the recipient and waits for the receipt.
func Transfer(
	ctx context.Context, client OnchainClient, sender Sender, to common.Address, value *big.Int, opts ...SubmitOption,
) (*types.Receipt, error) {
	draft := &Draft{
		To:    &to,
		Value: value,
	}

	return submit(ctx, client, sender, draft, applySubmitOptions(opts))
}

// Call performs a read-only contract call at the latest block and unpacks the return values.
func Call(
	ctx context.Context, client ethereum.ContractCaller, from, address common.Address, contractABI abi.ABI, method string, args ...any,
) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack arguments for %s: %w", method, err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{From: from, To: &address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call to %s on %s failed: %w", method, address.Hex(), err)
	}

	values, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result of %s: %w", method, err)
	}

	return values, nil
}

func submit(
	ctx context.Context, client OnchainClient, sender Sender, draft *Draft, o SubmitOptions,
) (*types.Receipt, error) {
	if err := draft.complete(ctx, client, sender.Address()); err != nil {
		return nil, err
	}

	hash, err := sender.Send(ctx, client, draft)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	if o.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, o.WaitTimeout)
		defer cancel()
	}

	receipt, err := WaitMined(waitCtx, client, hash, o.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction %s: %w", hash.Hex(), err)
	}

	return receipt, nil
}
