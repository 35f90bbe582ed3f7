// Package scenariotest provides an in-memory chain and test environments for scenario tests.
package scenariotest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/scenario"
)

// TransactFunc decides the outcome of a state changing call on a FakeChain.
type TransactFunc func(from common.Address, req evm.CallRequest) (status uint64, logs []*types.Log, err error)

// QueryFunc answers a read-only call on a FakeChain.
type QueryFunc func(from common.Address, req evm.CallRequest) ([]any, error)

// FakeChain is an in-memory scenario.Chain. Every submission is mined immediately into its own
// block. Contract addresses are derived from the sender and a per-sender nonce, as on a real node.
type FakeChain struct {
	mu sync.Mutex

	// Transact handles CallAndWait, a successful receipt without logs is produced when nil.
	Transact TransactFunc
	// Query handles Call.
	Query QueryFunc
	// DeployStatus overrides the status of creation receipts when non-nil.
	DeployStatus *uint64
	// Trace is returned by TraceBlockByNumber.
	Trace *evm.BlockTrace
	// Reason is returned by RevertReason.
	Reason string
	// ManagedAccounts is returned by Accounts.
	ManagedAccounts []common.Address

	nonces    map[common.Address]uint64
	balances  map[common.Address]*big.Int
	block     uint64
	Deploys   []evm.DeployRequest
	Calls     []evm.CallRequest
	Transfers []Transfer
}

// Transfer is a value transfer seen by a FakeChain.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

var _ scenario.Chain = (*FakeChain)(nil)

// NewFakeChain returns an empty FakeChain.
func NewFakeChain() *FakeChain {
	return &FakeChain{
		nonces:   make(map[common.Address]uint64),
		balances: make(map[common.Address]*big.Int),
	}
}

// SetBalance sets the balance of an account.
func (c *FakeChain) SetBalance(account common.Address, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[account] = new(big.Int).Set(balance)
}

// Deploy implements scenario.Chain.
func (c *FakeChain) Deploy(ctx context.Context, sender evm.Sender, req evm.DeployRequest) (*evm.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Bytecode) == 0 {
		return nil, errors.New("bytecode is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from := sender.Address()
	address := crypto.CreateAddress(from, c.nonces[from])
	receipt := c.mine(from, types.ReceiptStatusSuccessful)
	receipt.ContractAddress = address
	receipt.GasUsed = req.GasLimit / 2
	if c.DeployStatus != nil {
		receipt.Status = *c.DeployStatus
	}
	c.Deploys = append(c.Deploys, req)

	if err := evm.VerifyCreation(receipt); err != nil {
		return nil, err
	}

	return &evm.Deployment{Address: address, TxHash: receipt.TxHash, Receipt: receipt}, nil
}

// CallAndWait implements scenario.Chain.
func (c *FakeChain) CallAndWait(ctx context.Context, sender evm.Sender, req evm.CallRequest) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	status := types.ReceiptStatusSuccessful
	var logs []*types.Log
	if c.Transact != nil {
		var err error
		if status, logs, err = c.Transact(sender.Address(), req); err != nil {
			return nil, err
		}
	}

	receipt := c.mine(sender.Address(), status)
	for i, l := range logs {
		l.TxHash = receipt.TxHash
		l.BlockNumber = receipt.BlockNumber.Uint64()
		l.Index = uint(i)
	}
	receipt.Logs = logs
	c.Calls = append(c.Calls, req)

	return receipt, nil
}

// Call implements scenario.Chain.
func (c *FakeChain) Call(ctx context.Context, from common.Address, req evm.CallRequest) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Query == nil {
		return nil, errors.New("execution reverted")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Query(from, req)
}

// Transfer implements scenario.Chain.
func (c *FakeChain) Transfer(
	ctx context.Context, sender evm.Sender, to common.Address, value *big.Int,
) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from := sender.Address()
	c.balances[to] = new(big.Int).Add(c.balanceOf(to), value)
	c.Transfers = append(c.Transfers, Transfer{From: from, To: to, Value: new(big.Int).Set(value)})

	return c.mine(from, types.ReceiptStatusSuccessful), nil
}

// BalanceAt implements scenario.Chain.
func (c *FakeChain) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return new(big.Int).Set(c.balanceOf(account)), nil
}

// Accounts implements scenario.Chain.
func (c *FakeChain) Accounts(context.Context) ([]common.Address, error) {
	return c.ManagedAccounts, nil
}

// TraceBlockByNumber implements scenario.Chain.
func (c *FakeChain) TraceBlockByNumber(_ context.Context, number *big.Int) (*evm.BlockTrace, error) {
	if c.Trace == nil {
		return nil, errors.New("the method debug_traceBlockByNumber does not exist/is not available")
	}

	return c.Trace, nil
}

// RevertReason implements scenario.Chain.
func (c *FakeChain) RevertReason(context.Context, common.Address, *types.Receipt) (string, error) {
	if c.Reason == "" {
		return "", errors.New("reverted with no reason")
	}

	return c.Reason, nil
}

func (c *FakeChain) balanceOf(account common.Address) *big.Int {
	if b, ok := c.balances[account]; ok {
		return b
	}

	return new(big.Int)
}

// mine produces the receipt of the next transaction of from and advances the sender nonce and the
// block number. Callers hold the lock.
func (c *FakeChain) mine(from common.Address, status uint64) *types.Receipt {
	nonce := c.nonces[from]
	c.nonces[from] = nonce + 1
	c.block++

	return &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      status,
		TxHash:      crypto.Keccak256Hash(from.Bytes(), new(big.Int).SetUint64(nonce).Bytes()),
		BlockNumber: new(big.Int).SetUint64(c.block),
		GasUsed:     21000,
	}
}
