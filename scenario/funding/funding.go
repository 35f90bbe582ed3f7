// Package funding tops up a set of accounts from the development account of a node.
package funding

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/scenario"
)

const DefaultTargetEther = 10_000

// ErrNoDevAccount is returned when the node does not manage any account.
var ErrNoDevAccount = errors.New("node manages no accounts")

// DefaultAccounts returns the accounts funded when no manifest is given: a custom account followed
// by the first ethnode accounts.
func DefaultAccounts() []common.Address {
	return []common.Address{
		common.HexToAddress("0xFC2a2b9A68514E3315f0Bd2a29e900DC1a815a1D"),
		common.HexToAddress("0x9575eB2a7804c43F68dC7998EB0f250832DF9f10"),
		common.HexToAddress("0x6E387779Ed9d4578943556e4D58bF37a8DCEfA88"),
		common.HexToAddress("0x358A8A6F2277eA74943F31bF5DfA68BCAFa99064"),
		common.HexToAddress("0xb338661BAf7c6BFfc14cFeB9b2F40f7dcfEe16Ec"),
		common.HexToAddress("0xFF66aDab56EeAafABcd7EE03F50B8e3c17E6A57B"),
	}
}

// Ether converts an amount of ether to wei.
func Ether(amount uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(params.Ether))
}

// Config describes one run of the scenario.
type Config struct {
	Accounts []common.Address `json:"accounts"`
	// Target is the balance in wei every account is topped up to.
	Target *big.Int `json:"target"`
	// Dev is the account the funds are sent from. The first account managed by the node is used
	// when it is zero.
	Dev common.Address `json:"dev"`
}

// DefaultConfig returns the configuration used against a local dev node.
func DefaultConfig() Config {
	return Config{Accounts: DefaultAccounts(), Target: Ether(DefaultTargetEther)}
}

func (c Config) Validate() error {
	if len(c.Accounts) == 0 {
		return errors.New("no accounts to fund")
	}
	if c.Target == nil || c.Target.Sign() <= 0 {
		return errors.New("target balance must be positive")
	}

	return nil
}

// Funding is the outcome for a single account.
type Funding struct {
	Account common.Address `json:"account"`
	// Balance is the balance before funding.
	Balance     *big.Int    `json:"balance"`
	Transferred *big.Int    `json:"transferred"`
	TxHash      common.Hash `json:"txHash,omitempty"`
}

// Skipped reports whether the account already held the target balance.
func (f Funding) Skipped() bool {
	return f.Transferred.Sign() == 0
}

// Result is the outcome of a run.
type Result struct {
	Dev      common.Address `json:"dev"`
	Accounts []Funding      `json:"accounts"`
}

// SenderFunc returns the sender transfers from the dev account are sent with.
type SenderFunc func(dev common.Address) evm.Sender

// Deps are the dependencies of FundAccounts.
type Deps struct {
	Env       scenario.Environment
	NewSender SenderFunc
}

// FundAccounts tops up every account below the target balance.
var FundAccounts = operations.NewSequence(
	"fund-accounts",
	semver.MustParse("1.0.0"),
	"Tops up accounts to a target balance from the development account",
	fundAccounts,
)

// Run runs FundAccounts. Accounts holding the target balance or more are left untouched, so
// running it again has no effect.
func Run(env scenario.Environment, newSender SenderFunc, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	report, err := operations.ExecuteSequence(env.Operations, FundAccounts,
		Deps{Env: env, NewSender: newSender}, cfg)

	return report.Output, err
}

// DiscoverDevAccount returns the first account managed by the node.
func DiscoverDevAccount(ctx context.Context, chain scenario.Chain) (common.Address, error) {
	accounts, err := chain.Accounts(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to list node accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoDevAccount
	}

	return accounts[0], nil
}

func fundAccounts(b operations.Bundle, deps Deps, cfg Config) (Result, error) {
	var (
		ctx = b.GetContext()
		env = deps.Env
		err error
	)

	result := Result{Dev: cfg.Dev}
	if result.Dev == (common.Address{}) {
		if result.Dev, err = DiscoverDevAccount(ctx, env.Chain); err != nil {
			return result, err
		}
	}
	env.Printf("Discovered development account %s", result.Dev.Hex())
	env.Printf("Using target balance of %s wei", cfg.Target)

	chainDeps := scenario.ChainDeps{Chain: env.Chain, Sender: deps.NewSender(result.Dev)}
	for _, account := range cfg.Accounts {
		balance, err := env.Chain.BalanceAt(ctx, account)
		if err != nil {
			return result, fmt.Errorf("failed to get balance of %s: %w", account.Hex(), err)
		}

		funding := Funding{Account: account, Balance: balance, Transferred: new(big.Int)}
		if balance.Cmp(cfg.Target) >= 0 {
			env.Printf("Skipping address %s as it has already sufficient funding", account.Hex())
			result.Accounts = append(result.Accounts, funding)

			continue
		}

		funding.Transferred.Sub(cfg.Target, balance)
		report, err := operations.ExecuteOperation(b, scenario.FundAccountOp, chainDeps,
			scenario.FundAccountInput{Account: account, Amount: funding.Transferred})
		if err != nil {
			return result, err
		}
		funding.TxHash = report.Output.Receipt.TxHash
		result.Accounts = append(result.Accounts, funding)
		env.Printf("Transferred %s wei to account %s", funding.Transferred, account.Hex())
	}

	return result, nil
}
