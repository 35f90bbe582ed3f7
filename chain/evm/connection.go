package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/leftasexercise/ethdeploy/pkg/logger"
)

const (
	// DefaultDialAttempts is a single attempt: a node that does not answer aborts the run.
	DefaultDialAttempts = 1
	// DefaultDialDelay is the pause between dial attempts when more than one is configured.
	DefaultDialDelay = 1000 * time.Millisecond
	// DefaultHealthCheckTimeout bounds the liveness check performed right after dialing.
	DefaultHealthCheckTimeout = 5 * time.Second

	unknownChainName = "unknown"
)

// Mode selects how responses from the node are interpreted.
type Mode int

const (
	// ModeStandard decodes responses as returned by the node.
	ModeStandard Mode = iota
	// ModePoA normalizes block headers of proof-of-authority chains before decoding them.
	ModePoA
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModePoA:
		return "proof-of-authority"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ConnectionConfig holds the configuration used by Connect.
type ConnectionConfig struct {
	// Required: Endpoint is an http(s) or ws(s) URL, or the path of a local IPC socket. A leading
	// "~/" is expanded to the user's home directory.
	Endpoint string
	// Optional: Mode defaults to ModeStandard.
	Mode Mode
	// Optional: DialAttempts defaults to DefaultDialAttempts.
	DialAttempts uint
	// Optional: DialDelay defaults to DefaultDialDelay.
	DialDelay time.Duration
	// Optional: HealthCheckTimeout defaults to DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration
}

func (c ConnectionConfig) validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}

	return nil
}

func (c ConnectionConfig) withDefaults() ConnectionConfig {
	if c.DialAttempts == 0 {
		c.DialAttempts = DefaultDialAttempts
	}
	if c.DialDelay == 0 {
		c.DialDelay = DefaultDialDelay
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = DefaultHealthCheckTimeout
	}

	return c
}

// Connection is a live connection to a node. It embeds the go-ethereum ethclient and overrides
// header retrieval so that proof-of-authority headers decode.
type Connection struct {
	*ethclient.Client

	rpc       *rpc.Client
	endpoint  string
	mode      Mode
	chainID   *big.Int
	chainName string
}

var _ OnchainClient = (*Connection)(nil)

// Connect dials the endpoint, checks that the node answers eth_blockNumber and resolves the
// chain ID. Any failure is returned as an error, there is no fallback endpoint.
func Connect(ctx context.Context, lggr logger.Logger, cfg ConnectionConfig) (*Connection, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}
	cfg = cfg.withDefaults()

	endpoint, err := expandEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var conn *Connection
	err = retry.Do(func() error {
		lggr.Debugf("dialing endpoint %s", endpoint)
		client, derr := rpc.DialContext(ctx, endpoint)
		if derr != nil {
			return derr
		}

		c := NewConnection(client, endpoint, cfg.Mode)
		if herr := c.healthCheck(ctx, cfg.HealthCheckTimeout); herr != nil {
			c.Close()
			return herr
		}
		conn = c

		return nil
	},
		retry.Context(ctx),
		retry.Attempts(cfg.DialAttempts),
		retry.Delay(cfg.DialDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			lggr.Warnf("dial attempt %d for endpoint %s failed: %v", n+1, endpoint, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	chainID, err := conn.ChainID(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get chain ID from %s: %w", endpoint, err)
	}
	conn.chainID = chainID
	conn.chainName = chainNameFromID(chainID)

	lggr.Infow("Connected to node",
		"endpoint", endpoint, "chainID", chainID, "chain", conn.chainName, "mode", cfg.Mode)

	return conn, nil
}

// NewConnection wraps an already dialed RPC client. No liveness check is performed.
func NewConnection(client *rpc.Client, endpoint string, mode Mode) *Connection {
	return &Connection{
		Client:    ethclient.NewClient(client),
		rpc:       client,
		endpoint:  endpoint,
		mode:      mode,
		chainName: unknownChainName,
	}
}

// RPC returns the raw RPC client of the connection.
func (c *Connection) RPC() *rpc.Client {
	return c.rpc
}

// Endpoint returns the endpoint the connection was dialed with.
func (c *Connection) Endpoint() string {
	return c.endpoint
}

// Mode returns the compatibility mode of the connection.
func (c *Connection) Mode() Mode {
	return c.mode
}

// ChainName returns the name of the chain as known to chain-selectors, or "unknown" for local
// development chains.
func (c *Connection) ChainName() string {
	return c.chainName
}

// HeaderByNumber returns a block header from the current canonical chain. If number is nil, the
// latest known header is returned. In ModePoA the header is normalized before decoding.
func (c *Connection) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if c.mode != ModePoA {
		return c.Client.HeaderByNumber(ctx, number)
	}

	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, "eth_getBlockByNumber", blockNumberArg(number), false); err != nil {
		return nil, err
	}
	if isJSONNull(raw) {
		return nil, ethereum.NotFound
	}

	normalized, err := NormalizeHeader(raw)
	if err != nil {
		return nil, err
	}

	head := new(types.Header)
	if err := json.Unmarshal(normalized, head); err != nil {
		return nil, fmt.Errorf("failed to decode normalized header: %w", err)
	}

	return head, nil
}

// healthCheck performs a basic liveness check by calling eth_blockNumber.
func (c *Connection) healthCheck(ctx context.Context, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.BlockNumber(timeoutCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

// expandEndpoint resolves a leading "~/" of IPC socket paths.
func expandEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "~/") {
		return endpoint, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory for %s: %w", endpoint, err)
	}

	return filepath.Join(home, endpoint[2:]), nil
}

// blockNumberArg encodes a block number the way eth_getBlockByNumber expects it.
func blockNumberArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	if number.Sign() >= 0 {
		return hexutil.EncodeBig(number)
	}

	return rpc.BlockNumber(number.Int64()).String()
}

func chainNameFromID(chainID *big.Int) string {
	details, err := chainsel.GetChainDetailsByChainIDAndFamily(chainID.String(), chainsel.FamilyEVM)
	if err != nil {
		return unknownChainName
	}

	return details.ChainName
}
