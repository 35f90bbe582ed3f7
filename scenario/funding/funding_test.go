package funding_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leftasexercise/ethdeploy/chain/evm"
	"github.com/leftasexercise/ethdeploy/scenario/funding"
	"github.com/leftasexercise/ethdeploy/scenario/scenariotest"
)

var (
	dev     = common.HexToAddress("0xd489f87665ed713E602290BE7c01269Fc129f4Ea")
	funded  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	partial = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	empty   = common.HexToAddress("0x00000000000000000000000000000000000000f3")
)

func staticSender(addr common.Address) evm.Sender { return scenariotest.StaticSender(addr) }

func TestRun(t *testing.T) {
	t.Parallel()

	chain := scenariotest.NewFakeChain()
	chain.ManagedAccounts = []common.Address{dev, funded}
	chain.SetBalance(funded, funding.Ether(20))
	chain.SetBalance(partial, funding.Ether(3))
	env, out := scenariotest.NewEnvironment(t, chain, nil)

	cfg := funding.Config{Accounts: []common.Address{funded, partial, empty}, Target: funding.Ether(10)}
	result, err := funding.Run(env, staticSender, cfg)
	require.NoError(t, err)

	assert.Equal(t, dev, result.Dev)
	require.Len(t, result.Accounts, 3)
	assert.True(t, result.Accounts[0].Skipped())
	assert.Equal(t, "7000000000000000000", result.Accounts[1].Transferred.String())
	assert.Equal(t, "10000000000000000000", result.Accounts[2].Transferred.String())

	require.Len(t, chain.Transfers, 2)
	for _, tr := range chain.Transfers {
		assert.Equal(t, dev, tr.From)
	}
	for _, account := range []common.Address{partial, empty} {
		balance, err := chain.BalanceAt(t.Context(), account)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Cmp(funding.Ether(10)))
	}

	assert.Contains(t, out.String(), "Discovered development account "+dev.Hex())
	assert.Contains(t, out.String(), "Skipping address "+funded.Hex())
	assert.Contains(t, out.String(), "Transferred 7000000000000000000 wei to account "+partial.Hex())
}

func TestRun_ExplicitDev(t *testing.T) {
	t.Parallel()

	chain := scenariotest.NewFakeChain()
	env, _ := scenariotest.NewEnvironment(t, chain, nil)

	other := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	cfg := funding.Config{Accounts: []common.Address{empty}, Target: funding.Ether(1), Dev: other}
	result, err := funding.Run(env, staticSender, cfg)
	require.NoError(t, err)
	assert.Equal(t, other, result.Dev)
	require.Len(t, chain.Transfers, 1)
	assert.Equal(t, other, chain.Transfers[0].From)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     funding.Config
		wantIs  error
		wantErr string
	}{
		{
			name:   "no managed accounts",
			cfg:    funding.DefaultConfig(),
			wantIs: funding.ErrNoDevAccount,
		},
		{
			name:    "no accounts",
			cfg:     funding.Config{Target: funding.Ether(1)},
			wantErr: "no accounts to fund",
		},
		{
			name:    "zero target",
			cfg:     funding.Config{Accounts: funding.DefaultAccounts(), Target: new(big.Int)},
			wantErr: "target balance must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chain := scenariotest.NewFakeChain()
			env, _ := scenariotest.NewEnvironment(t, chain, nil)

			_, err := funding.Run(env, staticSender, tt.cfg)
			require.Error(t, err)
			if tt.wantIs != nil {
				require.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			}
			assert.Empty(t, chain.Transfers)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := funding.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Accounts, 6)
	assert.Equal(t, "10000000000000000000000", cfg.Target.String())
}

// devChain reports the deployer of a simulated chain as the account managed by the node.
type devChain struct {
	*scenariotest.SimulatedChain
}

func (c devChain) Accounts(context.Context) ([]common.Address, error) {
	return []common.Address{c.Deployer.Address()}, nil
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	sim := scenariotest.NewSimulatedChain(t)
	chain := devChain{sim}
	newSender := func(common.Address) evm.Sender { return sim.Deployer }

	// funded above the target before the first run
	_, err := sim.Transfer(t.Context(), sim.Deployer, funded, funding.Ether(12))
	require.NoError(t, err)

	cfg := funding.Config{Accounts: []common.Address{funded, partial, empty}, Target: funding.Ether(10)}

	env, _ := scenariotest.NewEnvironment(t, chain, nil)
	first, err := funding.Run(env, newSender, cfg)
	require.NoError(t, err)
	assert.True(t, first.Accounts[0].Skipped())
	assert.False(t, first.Accounts[1].Skipped())
	assert.False(t, first.Accounts[2].Skipped())

	env, _ = scenariotest.NewEnvironment(t, chain, nil)
	second, err := funding.Run(env, newSender, cfg)
	require.NoError(t, err)
	for _, f := range second.Accounts {
		assert.True(t, f.Skipped(), f.Account.Hex())
	}

	for account, want := range map[common.Address]*big.Int{
		funded:  funding.Ether(12),
		partial: funding.Ether(10),
		empty:   funding.Ether(10),
	} {
		balance, err := sim.BalanceAt(t.Context(), account)
		require.NoError(t, err)
		assert.Equal(t, 0, want.Cmp(balance), account.Hex())
	}
}
