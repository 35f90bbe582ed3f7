package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Chain bundles the clients of one node with the submission options of a run. Scenario drivers
// talk to the node exclusively through it.
type Chain struct {
	Client  OnchainClient
	RPC     RPCCaller
	Options []SubmitOption
}

// NewChain returns a Chain backed by an established connection.
func NewChain(conn *Connection, opts ...SubmitOption) *Chain {
	return &Chain{
		Client:  conn,
		RPC:     conn.RPC(),
		Options: opts,
	}
}

// Deploy deploys a contract, see Deploy.
func (c *Chain) Deploy(ctx context.Context, sender Sender, req DeployRequest) (*Deployment, error) {
	return Deploy(ctx, c.Client, sender, req, c.Options...)
}

// CallAndWait sends a state changing call, see CallAndWait.
func (c *Chain) CallAndWait(ctx context.Context, sender Sender, req CallRequest) (*types.Receipt, error) {
	return CallAndWait(ctx, c.Client, sender, req, c.Options...)
}

// Transfer sends ether, see Transfer.
func (c *Chain) Transfer(ctx context.Context, sender Sender, to common.Address, value *big.Int) (*types.Receipt, error) {
	return Transfer(ctx, c.Client, sender, to, value, c.Options...)
}

// Call performs a read-only call, see Call.
func (c *Chain) Call(ctx context.Context, from common.Address, req CallRequest) ([]any, error) {
	return Call(ctx, c.Client, from, req.Address, req.ABI, req.Method, req.Args...)
}

// BalanceAt returns the balance of the account at the latest block.
func (c *Chain) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.Client.BalanceAt(ctx, account, nil)
}

// Accounts returns the accounts managed by the node.
func (c *Chain) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.RPC.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}

	return accounts, nil
}

// TraceBlockByNumber returns the call traces of a block, see TraceBlockByNumber.
func (c *Chain) TraceBlockByNumber(ctx context.Context, number *big.Int) (*BlockTrace, error) {
	return TraceBlockByNumber(ctx, c.RPC, number)
}

// RevertReason replays the transaction of a failed receipt, see RevertReason.
func (c *Chain) RevertReason(ctx context.Context, from common.Address, receipt *types.Receipt) (string, error) {
	tx, _, err := c.Client.TransactionByHash(ctx, receipt.TxHash)
	if err != nil {
		return "", err
	}

	return RevertReason(ctx, c.Client, from, tx, receipt)
}
