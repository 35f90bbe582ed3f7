package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sender hands a completed Draft to the node. Implementations decide who signs the transaction.
type Sender interface {
	// Address returns the account transactions are sent from.
	Address() common.Address
	// Send submits the draft and returns the transaction hash. It does not wait for the receipt.
	Send(ctx context.Context, client OnchainClient, draft *Draft) (common.Hash, error)
}

var (
	_ Sender = (*LocalSigner)(nil)
	_ Sender = (*NodeManagedSender)(nil)
)

// SignerStrategy selects the Sender used by a scenario.
type SignerStrategy string

const (
	// SignerLocal signs transactions in process with a private key.
	SignerLocal SignerStrategy = "local"
	// SignerNode leaves signing to an account unlocked on the node.
	SignerNode SignerStrategy = "node"
)

// ParseSignerStrategy parses the textual form of a SignerStrategy.
func ParseSignerStrategy(s string) (SignerStrategy, error) {
	switch strategy := SignerStrategy(strings.ToLower(strings.TrimSpace(s))); strategy {
	case SignerLocal, SignerNode:
		return strategy, nil
	default:
		return "", fmt.Errorf("unknown signer strategy %q, expected %q or %q", s, SignerLocal, SignerNode)
	}
}

// Account is an address with an optional private key.
type Account struct {
	Address common.Address
	Key     string
}

// NewSender returns the Sender for the strategy. A local signer requires a key; when the address
// is also set it must match the address derived from the key. A node managed sender requires the
// address.
func NewSender(strategy SignerStrategy, rpc RPCCaller, account Account) (Sender, error) {
	switch strategy {
	case SignerLocal:
		signer, err := NewLocalSigner(account.Key)
		if err != nil {
			return nil, err
		}
		if account.Address != (common.Address{}) && account.Address != signer.Address() {
			return nil, fmt.Errorf("private key belongs to %s, not to %s", signer.Address().Hex(), account.Address.Hex())
		}

		return signer, nil
	case SignerNode:
		if account.Address == (common.Address{}) {
			return nil, errors.New("node managed signing requires an account address")
		}

		return NewNodeManagedSender(rpc, account.Address), nil
	default:
		return nil, fmt.Errorf("unknown signer strategy %q", strategy)
	}
}

// LocalSigner signs transactions with a private key held in memory and submits them with
// eth_sendRawTransaction.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner parses a hex encoded private key, with or without a 0x prefix.
func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key is required for local signing")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return NewLocalSignerFromKey(key), nil
}

// NewLocalSignerFromKey returns a LocalSigner for an already parsed key.
func NewLocalSignerFromKey(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) Send(ctx context.Context, client OnchainClient, draft *Draft) (common.Hash, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	tx, err := types.SignTx(draft.toTransaction(chainID), types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return tx.Hash(), nil
}

// NodeManagedSender submits unsigned transactions with eth_sendTransaction. The node signs them
// with an account it manages, which must be unlocked.
type NodeManagedSender struct {
	rpc     RPCCaller
	address common.Address
}

// NewNodeManagedSender returns a sender for an account managed by the node behind rpc.
func NewNodeManagedSender(rpc RPCCaller, address common.Address) *NodeManagedSender {
	return &NodeManagedSender{rpc: rpc, address: address}
}

func (s *NodeManagedSender) Address() common.Address {
	return s.address
}

func (s *NodeManagedSender) Send(ctx context.Context, _ OnchainClient, draft *Draft) (common.Hash, error) {
	var hash common.Hash
	if err := s.rpc.CallContext(ctx, &hash, "eth_sendTransaction", toSendTxArgs(draft)); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction from %s: %w", s.address.Hex(), err)
	}

	return hash, nil
}

// sendTxArgs is the argument object of eth_sendTransaction.
type sendTxArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
}

func toSendTxArgs(d *Draft) sendTxArgs {
	return sendTxArgs{
		From:                 d.From,
		To:                   d.To,
		Gas:                  hexutil.Uint64(d.Gas),
		GasPrice:             (*hexutil.Big)(d.GasPrice),
		MaxFeePerGas:         (*hexutil.Big)(d.GasFeeCap),
		MaxPriorityFeePerGas: (*hexutil.Big)(d.GasTipCap),
		Value:                (*hexutil.Big)(d.Value),
		Nonce:                hexutil.Uint64(d.Nonce),
		Data:                 d.Data,
	}
}
