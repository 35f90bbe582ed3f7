package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// baseFeeMultiplier is applied to the latest base fee when computing the fee cap, leaving room
// for the base fee to rise over a few blocks before the transaction is included.
var baseFeeMultiplier = big.NewInt(2)

// Draft is an unsigned transaction that accumulates its fields until it is handed to a Sender.
// A nil To makes the draft a contract creation.
type Draft struct {
	From  common.Address
	To    *common.Address
	Nonce uint64
	Gas   uint64
	Value *big.Int
	Data  []byte

	// GasPrice is set for chains without a base fee.
	GasPrice *big.Int
	// GasTipCap and GasFeeCap are set for chains with a base fee.
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// IsCreation reports whether the draft deploys a contract.
func (d *Draft) IsCreation() bool {
	return d.To == nil
}

// complete fills the sender, the nonce, the fee fields and, when no gas limit was provided, an
// estimated gas limit. The nonce is the sender's transaction count at the latest block and is
// queried on every call.
func (d *Draft) complete(ctx context.Context, client OnchainClient, from common.Address) error {
	d.From = from
	if d.Value == nil {
		d.Value = new(big.Int)
	}

	nonce, err := client.NonceAt(ctx, from, nil)
	if err != nil {
		return fmt.Errorf("failed to get transaction count for %s: %w", from.Hex(), err)
	}
	d.Nonce = nonce

	if err := d.fillFees(ctx, client); err != nil {
		return err
	}

	if d.Gas == 0 {
		gas, err := client.EstimateGas(ctx, d.callMsg())
		if err != nil {
			return fmt.Errorf("failed to estimate gas for transaction from %s: %w", from.Hex(), err)
		}
		d.Gas = gas
	}

	return nil
}

// fillFees selects legacy or dynamic fee pricing depending on whether the latest header
// carries a base fee.
func (d *Draft) fillFees(ctx context.Context, client OnchainClient) error {
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get latest header: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("failed to suggest gas price: %w", err)
		}
		d.GasPrice = gasPrice

		return nil
	}

	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("failed to suggest gas tip cap: %w", err)
	}
	d.GasTipCap = tip
	d.GasFeeCap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, baseFeeMultiplier))

	return nil
}

// callMsg converts the draft into a message usable for eth_call and eth_estimateGas.
func (d *Draft) callMsg() ethereum.CallMsg {
	return ethereum.CallMsg{
		From:      d.From,
		To:        d.To,
		Gas:       d.Gas,
		GasPrice:  d.GasPrice,
		GasFeeCap: d.GasFeeCap,
		GasTipCap: d.GasTipCap,
		Value:     d.Value,
		Data:      d.Data,
	}
}

// toTransaction converts a completed draft into an unsigned transaction.
func (d *Draft) toTransaction(chainID *big.Int) *types.Transaction {
	if d.GasFeeCap != nil {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     d.Nonce,
			GasTipCap: d.GasTipCap,
			GasFeeCap: d.GasFeeCap,
			Gas:       d.Gas,
			To:        d.To,
			Value:     d.Value,
			Data:      d.Data,
		})
	}

	return types.NewTx(&types.LegacyTx{
		Nonce:    d.Nonce,
		GasPrice: d.GasPrice,
		Gas:      d.Gas,
		To:       d.To,
		Value:    d.Value,
		Data:     d.Data,
	})
}
