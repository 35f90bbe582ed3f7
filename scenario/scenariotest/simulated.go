package scenariotest

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/leftasexercise/ethdeploy/chain/evm"
)

// SimulatedChain is an evm.Chain over a go-ethereum simulated backend that mines a block every
// few milliseconds.
type SimulatedChain struct {
	*evm.Chain

	Backend *simulated.Backend
	// Deployer holds a million ether from genesis.
	Deployer *evm.LocalSigner
}

// NewSimulatedChain starts a simulated backend that is closed when the test ends.
func NewSimulatedChain(t *testing.T) *SimulatedChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	deployer := evm.NewLocalSignerFromKey(key)

	prefund := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
	backend := simulated.NewBackend(types.GenesisAlloc{
		deployer.Address(): {Balance: prefund},
	})

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()

	t.Cleanup(func() {
		close(done)
		wg.Wait()
		_ = backend.Close()
	})

	return &SimulatedChain{
		Chain: &evm.Chain{
			Client:  backend.Client(),
			Options: []evm.SubmitOption{evm.WithPollInterval(5 * time.Millisecond), evm.WithWaitTimeout(10 * time.Second)},
		},
		Backend:  backend,
		Deployer: deployer,
	}
}
