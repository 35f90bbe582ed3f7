package scenario_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/datastore"
	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/operations/optest"
	"github.com/leftasexercise/ethdeploy/scenario"
	"github.com/leftasexercise/ethdeploy/scenario/scenariotest"
)

const echoABIJSON = `[{"type":"function","name":"echo","stateMutability":"nonpayable",
	"inputs":[{"name":"x","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}]`

// Hand assembled creation code: an 11 byte constructor copying the runtime code that follows it.
var contracts = map[string]scenariotest.ContractFixture{
	// Echo returns the first argument word.
	"Echo": {ABI: echoABIJSON, Bytecode: "600b80600b6000396000f3" + "60043560005260206000f3"},
	// Reverter reverts on every call.
	"Reverter": {ABI: echoABIJSON, Bytecode: "600580600b6000396000f3" + "60006000fd"},
}

func TestDeployContractOp(t *testing.T) {
	t.Parallel()

	var (
		sim          = scenariotest.NewSimulatedChain(t)
		b, reporter  = optest.NewBundle(t)
		book         = datastore.NewMemoryAddressBook()
		compiled     = scenariotest.NewResult(t, "Echo.sol", contracts)
		artifact, er = compiled.Contract("Echo.sol", "Echo")
	)
	require.NoError(t, er)

	deps := scenario.DeployContractDeps{
		ChainDeps:   scenario.ChainDeps{Chain: sim.Chain, Sender: sim.Deployer},
		Artifact:    artifact,
		AddressBook: book,
	}
	report, err := operations.ExecuteOperation(b, scenario.DeployContractOp, deps, scenario.DeployContractInput{
		Contract: "Echo",
		GasLimit: 100_000,
		Labels:   []string{"call-chain"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, report.Output.Address)
	assert.Equal(t, types.ReceiptStatusSuccessful, report.Output.Receipt.Status)

	ref, err := book.Get("Echo")
	require.NoError(t, err)
	assert.Equal(t, report.Output.Address, ref.Address)
	assert.Equal(t, report.Output.Receipt.TxHash, ref.TxHash)
	assert.Equal(t, "call-chain", ref.Labels.String())

	reports, err := reporter.GetReports()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "deploy-contract", reports[0].Def.ID)
}

func TestDeployContractOp_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing artifact", func(t *testing.T) {
		t.Parallel()

		b, _ := optest.NewBundle(t)
		deps := scenario.DeployContractDeps{
			ChainDeps: scenario.ChainDeps{Chain: scenariotest.NewFakeChain(), Sender: scenariotest.StaticSender{}},
		}
		_, err := operations.ExecuteOperation(b, scenario.DeployContractOp, deps,
			scenario.DeployContractInput{Contract: "NFT", GasLimit: 1})
		require.ErrorContains(t, err, "no compiled artifact for NFT")
	})

	t.Run("empty contract address", func(t *testing.T) {
		t.Parallel()

		var (
			b, _     = optest.NewBundle(t)
			chain    = scenariotest.NewFakeChain()
			failed   = types.ReceiptStatusFailed
			compiled = scenariotest.NewResult(t, "Echo.sol", contracts)
		)
		chain.DeployStatus = &failed
		artifact, err := compiled.Contract("Echo.sol", "Echo")
		require.NoError(t, err)

		book := datastore.NewMemoryAddressBook()
		deps := scenario.DeployContractDeps{
			ChainDeps:   scenario.ChainDeps{Chain: chain, Sender: scenariotest.StaticSender{}},
			Artifact:    artifact,
			AddressBook: book,
		}
		_, err = operations.ExecuteOperation(b, scenario.DeployContractOp, deps,
			scenario.DeployContractInput{Contract: "Echo", GasLimit: 100_000})

		var derr *evm.DeploymentError
		require.ErrorAs(t, err, &derr)
		assert.Empty(t, book.Fetch())
	})
}

func TestCallContractOp(t *testing.T) {
	t.Parallel()

	var (
		sim      = scenariotest.NewSimulatedChain(t)
		b, _     = optest.NewBundle(t)
		compiled = scenariotest.NewResult(t, "Echo.sol", contracts)
	)

	deploy := func(name string) (common.Address, scenario.CallContractDeps) {
		artifact, err := compiled.Contract("Echo.sol", name)
		require.NoError(t, err)

		report, err := operations.ExecuteOperation(b, scenario.DeployContractOp, scenario.DeployContractDeps{
			ChainDeps: scenario.ChainDeps{Chain: sim.Chain, Sender: sim.Deployer},
			Artifact:  artifact,
		}, scenario.DeployContractInput{Contract: name, GasLimit: 100_000})
		require.NoError(t, err)

		return report.Output.Address, scenario.CallContractDeps{
			ChainDeps: scenario.ChainDeps{Chain: sim.Chain, Sender: sim.Deployer},
			ABI:       artifact.ABI,
		}
	}

	t.Run("success", func(t *testing.T) {
		echo, deps := deploy("Echo")

		report, err := operations.ExecuteOperation(b, scenario.CallContractOp, deps, scenario.CallContractInput{
			Contract: "Echo",
			Address:  echo,
			Method:   "echo",
			Args:     []any{big.NewInt(100)},
		})
		require.NoError(t, err)
		assert.Equal(t, types.ReceiptStatusSuccessful, report.Output.Receipt.Status)
	})

	t.Run("failed status", func(t *testing.T) {
		reverter, deps := deploy("Reverter")

		report, err := operations.ExecuteOperation(b, scenario.CallContractOp, deps, scenario.CallContractInput{
			Contract: "Reverter",
			Address:  reverter,
			Method:   "echo",
			Args:     []any{big.NewInt(100)},
			GasLimit: 100_000,
		})

		var cerr *evm.CallError
		require.ErrorAs(t, err, &cerr)
		require.NotNil(t, cerr.Receipt)
		assert.Equal(t, types.ReceiptStatusFailed, cerr.Receipt.Status)
		assert.Contains(t, cerr.Reason, "execution reverted")
		assert.Equal(t, cerr.Receipt, report.Output.Receipt)
	})
}

func TestCallContractOp_ReasonUnavailable(t *testing.T) {
	t.Parallel()

	var (
		b, _  = optest.NewBundle(t)
		chain = scenariotest.NewFakeChain()
	)
	chain.Transact = func(common.Address, evm.CallRequest) (uint64, []*types.Log, error) {
		return types.ReceiptStatusFailed, nil, nil
	}

	deps := scenario.CallContractDeps{
		ChainDeps: scenario.ChainDeps{Chain: chain, Sender: scenariotest.StaticSender{}},
	}
	_, err := operations.ExecuteOperation(b, scenario.CallContractOp, deps,
		scenario.CallContractInput{Contract: "NFT", Method: "_mint"})

	var cerr *evm.CallError
	require.ErrorAs(t, err, &cerr)
	assert.Empty(t, cerr.Reason)
}

func TestFundAccountOp(t *testing.T) {
	t.Parallel()

	var (
		b, _    = optest.NewBundle(t)
		chain   = scenariotest.NewFakeChain()
		dev     = common.HexToAddress("0x00000000000000000000000000000000000000d0")
		account = common.HexToAddress("0x00000000000000000000000000000000000000a1")
		amount  = new(big.Int).Mul(big.NewInt(5), big.NewInt(params.Ether))
	)

	report, err := operations.ExecuteOperation(b, scenario.FundAccountOp,
		scenario.ChainDeps{Chain: chain, Sender: scenariotest.StaticSender(dev)},
		scenario.FundAccountInput{Account: account, Amount: amount})
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, report.Output.Receipt.Status)

	balance, err := chain.BalanceAt(t.Context(), account)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(balance))
	require.Len(t, chain.Transfers, 1)
	assert.Equal(t, dev, chain.Transfers[0].From)
}

func TestQuery(t *testing.T) {
	t.Parallel()

	var (
		chain    = scenariotest.NewFakeChain()
		compiled = scenariotest.NewResult(t, "Echo.sol", contracts)
	)
	artifact, err := compiled.Contract("Echo.sol", "Echo")
	require.NoError(t, err)

	chain.Query = func(_ common.Address, req evm.CallRequest) ([]any, error) {
		switch req.Method {
		case "echo":
			return []any{req.Args[0]}, nil
		case "pair":
			return []any{1, 2}, nil
		default:
			return nil, errors.New("execution reverted")
		}
	}

	got, err := scenario.Query[*big.Int](t.Context(), chain, common.Address{}, common.Address{}, artifact.ABI,
		"echo", big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Int64())

	_, err = scenario.Query[string](t.Context(), chain, common.Address{}, common.Address{}, artifact.ABI,
		"echo", big.NewInt(100))
	require.ErrorContains(t, err, "echo returned *big.Int, expected string")

	_, err = scenario.Query[int](t.Context(), chain, common.Address{}, common.Address{}, artifact.ABI, "pair")
	require.ErrorContains(t, err, "pair returned 2 values, expected 1")

	_, err = scenario.Query[int](t.Context(), chain, common.Address{}, common.Address{}, artifact.ABI, "missing")
	require.ErrorContains(t, err, "execution reverted")
}
