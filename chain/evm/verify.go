package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DeploymentError is returned when a contract creation did not produce a contract.
type DeploymentError struct {
	Receipt *types.Receipt
	Reason  string
}

func (e *DeploymentError) Error() string {
	msg := "contract creation failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg + "\n" + FormatReceipt(e.Receipt)
}

// CallError is returned when a state changing call was mined with a failed status.
type CallError struct {
	Receipt *types.Receipt
	Reason  string
}

func (e *CallError) Error() string {
	msg := "transaction failed"
	if e.Receipt != nil {
		msg = fmt.Sprintf("transaction %s failed", e.Receipt.TxHash.Hex())
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg + "\n" + FormatReceipt(e.Receipt)
}

// VerifyCreation checks that the receipt of a contract creation names the created contract and
// that the creation succeeded.
func VerifyCreation(receipt *types.Receipt) error {
	if receipt == nil {
		return &DeploymentError{Reason: "no receipt"}
	}
	if receipt.ContractAddress == (common.Address{}) {
		return &DeploymentError{Receipt: receipt, Reason: "receipt has no contract address"}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &DeploymentError{Receipt: receipt, Reason: "constructor reverted"}
	}

	return nil
}

// VerifyCall checks that a call receipt has a successful status.
func VerifyCall(receipt *types.Receipt) error {
	if receipt == nil {
		return &CallError{Reason: "no receipt"}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &CallError{Receipt: receipt}
	}

	return nil
}

// FormatReceipt renders a receipt as indented JSON for diagnostics.
func FormatReceipt(receipt *types.Receipt) string {
	if receipt == nil {
		return "<no receipt>"
	}

	b, err := json.MarshalIndent(receipt, "", "    ")
	if err != nil {
		return fmt.Sprintf("<unprintable receipt %s: %v>", receipt.TxHash.Hex(), err)
	}

	return string(b)
}

// RevertReason replays a mined transaction as a call at its block to extract the revert reason.
// It returns an error when the replay does not fail or yields no information.
func RevertReason(
	ctx context.Context,
	caller ethereum.ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (string, error) {
	call := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Data:  tx.Data(),
		Value: tx.Value(),
		Gas:   tx.Gas(),
	}

	_, err := caller.CallContract(ctx, call, receipt.BlockNumber)
	if err == nil {
		return "", fmt.Errorf("tx %s reverted with no reason", tx.Hash().Hex())
	}

	data, perr := getJSONErrorData(err)
	if perr != nil || len(common.FromHex(data)) == 0 {
		return err.Error(), nil
	}
	if reason, uerr := abi.UnpackRevert(common.FromHex(data)); uerr == nil {
		return reason, nil
	}

	return data, nil
}

// getJSONErrorData extracts the error data from a JSON-RPC error.
func getJSONErrorData(err error) (string, error) {
	if err == nil {
		return "", errors.New("cannot parse nil error")
	}

	// Matches the structure of the JSON error, which is a private type in go-ethereum.
	type jsonError interface {
		Error() string
		ErrorCode() int
		ErrorData() any
	}

	var jerr jsonError
	if !errors.As(err, &jerr) {
		return "", fmt.Errorf("error must be of type jsonError: %w", err)
	}

	var data string
	if d := jerr.ErrorData(); d != nil {
		data = fmt.Sprintf("%s", d)
	}
	if data == "" && strings.Contains(jerr.Error(), "missing trie node") {
		return "", errors.New("missing trie node, likely due to not using an archive node")
	}

	return data, nil
}
