package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interfaces to abstract chain clients. Both
// *Connection and the go-ethereum simulated backend client satisfy it.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
}

// RPCCaller issues raw JSON-RPC requests. It is satisfied by *rpc.Client and is used for the
// methods go-ethereum's ethclient does not wrap: eth_accounts, eth_sendTransaction and the debug
// namespace.
type RPCCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}
