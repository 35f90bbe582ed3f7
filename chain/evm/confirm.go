package evm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultPollInterval is how often the receipt of a submitted transaction is polled for.
const DefaultPollInterval = 1 * time.Second

// WaitMined polls for the receipt of the transaction every tick until it is available or ctx is
// done. There is no deadline besides the one carried by ctx. Only a missing receipt is retried,
// any other error of the node ends the wait.
func WaitMined(ctx context.Context, b bind.DeployBackend, txHash common.Hash, tick time.Duration) (*types.Receipt, error) {
	if tick <= 0 {
		tick = DefaultPollInterval
	}

	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			return receipt, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !receiptPending(err):
			return nil, fmt.Errorf("failed to fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}

// receiptPending reports whether err means that the receipt is not available yet. geth answers
// with an error instead of null while it is still indexing transactions.
func receiptPending(err error) bool {
	return errors.Is(err, ethereum.NotFound) || strings.Contains(err.Error(), "transaction indexing is in progress")
}
