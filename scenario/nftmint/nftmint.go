// Package nftmint compiles an NFT contract, deploys it and mints a range of tokens to the owner.
package nftmint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/compilation"
	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/scenario"
)

const (
	DefaultSource       = "contracts/NFT.sol"
	DefaultContract     = "NFT"
	DefaultBaseURI      = "https://leftasexercise.fra1.digitaloceanspaces.com/nft/metadata/"
	DefaultGasLimit     = 3_000_000
	DefaultMintGasLimit = 100_000
	DefaultFirstToken   = 1
	DefaultLastToken    = 5
)

// ErrOwnerMismatch is returned when a minted token is not owned by the owner of the contract.
var ErrOwnerMismatch = errors.New("token owner mismatch")

// Config describes one run of the scenario.
type Config struct {
	Source   string         `json:"source"`
	Contract string         `json:"contract"`
	Owner    common.Address `json:"owner"`
	BaseURI  string         `json:"baseURI"`
	// GasLimit is used for the deployment, MintGasLimit for every mint.
	GasLimit     uint64 `json:"gasLimit"`
	MintGasLimit uint64 `json:"mintGasLimit"`
	FirstToken   uint64 `json:"firstToken"`
	LastToken    uint64 `json:"lastToken"`
}

// DefaultConfig returns the configuration used against a local dev node.
func DefaultConfig() Config {
	return Config{
		Source:       DefaultSource,
		Contract:     DefaultContract,
		BaseURI:      DefaultBaseURI,
		GasLimit:     DefaultGasLimit,
		MintGasLimit: DefaultMintGasLimit,
		FirstToken:   DefaultFirstToken,
		LastToken:    DefaultLastToken,
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Source == "" {
		return errors.New("source file is required")
	}
	if c.Contract == "" {
		return errors.New("contract name is required")
	}
	if c.GasLimit == 0 || c.MintGasLimit == 0 {
		return errors.New("gas limits must be positive")
	}
	if c.FirstToken > c.LastToken {
		return fmt.Errorf("first token %d is after last token %d", c.FirstToken, c.LastToken)
	}

	return nil
}

// Token is a minted token.
type Token struct {
	ID     uint64         `json:"id"`
	Owner  common.Address `json:"owner"`
	URI    string         `json:"uri"`
	TxHash common.Hash    `json:"txHash"`
}

// Result is the outcome of a run.
type Result struct {
	Address common.Address `json:"address"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
	Tokens  []Token        `json:"tokens"`
}

// Deps are the dependencies of DeployAndMint.
type Deps struct {
	Env      scenario.Environment
	Sender   evm.Sender
	Artifact *compilation.Contract
}

// DeployAndMint deploys the compiled contract and mints the configured tokens.
var DeployAndMint = operations.NewSequence(
	"deploy-and-mint-nft",
	semver.MustParse("1.0.0"),
	"Deploys an NFT contract and mints tokens to its owner",
	deployAndMint,
)

// Run compiles the source file of the configuration and runs DeployAndMint. Transactions are sent
// by sender, which must control the owner account.
func Run(env scenario.Environment, sender evm.Sender, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if cfg.Owner == (common.Address{}) {
		cfg.Owner = sender.Address()
	}
	if cfg.Owner != sender.Address() {
		return Result{}, fmt.Errorf("owner %s does not match sender %s", cfg.Owner.Hex(), sender.Address().Hex())
	}

	env.Printf("Compiling from source file %s", cfg.Source)
	spec, key, err := compilation.NewFileSpec(cfg.Source)
	if err != nil {
		return Result{}, err
	}
	compiled, err := env.Compiler.Compile(env.Operations.GetContext(), spec, spec.AllowPaths()...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compile %s: %w", cfg.Source, err)
	}
	artifact, err := compiled.Contract(key, cfg.Contract)
	if err != nil {
		return Result{}, err
	}

	report, err := operations.ExecuteSequence(env.Operations, DeployAndMint,
		Deps{Env: env, Sender: sender, Artifact: artifact}, cfg)

	return report.Output, err
}

func deployAndMint(b operations.Bundle, deps Deps, cfg Config) (Result, error) {
	var (
		ctx       = b.GetContext()
		env       = deps.Env
		chainDeps = scenario.ChainDeps{Chain: env.Chain, Sender: deps.Sender}
		abi       = deps.Artifact.ABI
	)

	deployed, err := operations.ExecuteOperation(b, scenario.DeployContractOp,
		scenario.DeployContractDeps{ChainDeps: chainDeps, Artifact: deps.Artifact, AddressBook: env.AddressBook},
		scenario.DeployContractInput{
			Contract: cfg.Contract,
			GasLimit: cfg.GasLimit,
			Args:     []any{cfg.BaseURI},
			Labels:   []string{"nft"},
		})
	if err != nil {
		return Result{}, err
	}

	result := Result{Address: deployed.Output.Address}
	env.Printf("Gas used for deployment: %d", deployed.Output.Receipt.GasUsed)
	env.Printf("Deployed NFT at %s", result.Address.Hex())

	if result.Name, err = scenario.Query[string](ctx, env.Chain, cfg.Owner, result.Address, abi, "name"); err != nil {
		return result, fmt.Errorf("failed to read token name: %w", err)
	}
	if result.Symbol, err = scenario.Query[string](ctx, env.Chain, cfg.Owner, result.Address, abi, "symbol"); err != nil {
		return result, fmt.Errorf("failed to read token symbol: %w", err)
	}
	env.Printf("Token name  : %s", result.Name)
	env.Printf("Token symbol: %s", result.Symbol)

	for id := cfg.FirstToken; id <= cfg.LastToken; id++ {
		token, err := mint(b, deps, chainDeps, cfg, result.Address, id)
		if err != nil {
			return result, err
		}
		result.Tokens = append(result.Tokens, token)
		env.Printf("Successfully minted token %d with tokenURI %s", token.ID, token.URI)
	}

	return result, nil
}

func mint(
	b operations.Bundle, deps Deps, chainDeps scenario.ChainDeps, cfg Config, address common.Address, id uint64,
) (Token, error) {
	var (
		ctx     = b.GetContext()
		chain   = deps.Env.Chain
		abi     = deps.Artifact.ABI
		tokenID = new(big.Int).SetUint64(id)
	)

	minted, err := operations.ExecuteOperation(b, scenario.CallContractOp,
		scenario.CallContractDeps{ChainDeps: chainDeps, ABI: abi},
		scenario.CallContractInput{
			Contract: cfg.Contract,
			Address:  address,
			Method:   "_mint",
			Args:     []any{tokenID},
			GasLimit: cfg.MintGasLimit,
		})
	if err != nil {
		return Token{}, fmt.Errorf("failed to mint token %d: %w", id, err)
	}

	owner, err := scenario.Query[common.Address](ctx, chain, cfg.Owner, address, abi, "ownerOf", tokenID)
	if err != nil {
		return Token{}, fmt.Errorf("failed to read owner of token %d: %w", id, err)
	}
	if owner != cfg.Owner {
		return Token{}, fmt.Errorf("token %d is owned by %s, expected %s: %w",
			id, owner.Hex(), cfg.Owner.Hex(), ErrOwnerMismatch)
	}

	uri, err := scenario.Query[string](ctx, chain, cfg.Owner, address, abi, "tokenURI", tokenID)
	if err != nil {
		return Token{}, fmt.Errorf("failed to read URI of token %d: %w", id, err)
	}

	return Token{ID: id, Owner: owner, URI: uri, TxHash: minted.Output.Receipt.TxHash}, nil
}
