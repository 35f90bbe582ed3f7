package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

// Hand assembled creation code: a 11 byte constructor copying the runtime code that follows it.
var (
	// stopBytecode deploys a contract whose code is a single STOP.
	stopBytecode = hexutil.MustDecode("0x600180600b6000396000f3" + "00")
	// revertBytecode deploys a contract that reverts on every call.
	revertBytecode = hexutil.MustDecode("0x600580600b6000396000f3" + "60006000fd")
	// echoBytecode deploys a contract that returns the first argument word, i.e. echo(uint256).
	echoBytecode = hexutil.MustDecode("0x600b80600b6000396000f3" + "60043560005260206000f3")
	// revertingConstructor reverts during creation.
	revertingConstructor = hexutil.MustDecode("0x60006000fd")
)

const echoABIJSON = `[{"type":"function","name":"echo","stateMutability":"nonpayable",
	"inputs":[{"name":"x","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}]`

func echoABI(t *testing.T) abi.ABI {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(echoABIJSON))
	require.NoError(t, err)

	return parsed
}

// simChain is a simulated backend which mines a block every few milliseconds, so that the
// receipt polling of the submitter observes the same behavior as on a dev node.
type simChain struct {
	backend *simulated.Backend
	client  simulated.Client
	key     *ecdsa.PrivateKey
	from    common.Address
}

func newSimChain(t *testing.T) *simChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	prefund := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
	backend := simulated.NewBackend(types.GenesisAlloc{
		from: {Balance: prefund},
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

	return &simChain{
		backend: backend,
		client:  backend.Client(),
		key:     key,
		from:    from,
	}
}

func (s *simChain) signer() *LocalSigner {
	return NewLocalSignerFromKey(s.key)
}

func (s *simChain) opts() []SubmitOption {
	return []SubmitOption{WithPollInterval(5 * time.Millisecond), WithWaitTimeout(10 * time.Second)}
}

// fakeRPC records raw JSON-RPC requests and answers them from a table keyed by method.
type fakeRPC struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []fakeRPCCall
}

type fakeRPCCall struct {
	Method string
	Args   []any
}

func (f *fakeRPC) CallContext(_ context.Context, result any, method string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fakeRPCCall{Method: method, Args: args})
	if err, ok := f.errs[method]; ok {
		return err
	}

	resp, ok := f.responses[method]
	if !ok {
		return &rpcError{msg: "the method " + method + " does not exist/is not available"}
	}

	return json.Unmarshal([]byte(resp), result)
}

// rpcError mimics the JSON-RPC error type of go-ethereum.
type rpcError struct {
	msg  string
	code int
	data any
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }
func (e *rpcError) ErrorData() any { return e.data }
