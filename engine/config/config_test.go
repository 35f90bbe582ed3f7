package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leftasexercise/ethdeploy/scenario/funding"
)

// fileCfg is the config that is loaded from the testdata/config.yml file.
var fileCfg = &Config{
	Node: NodeConfig{
		URL:                "ws://127.0.0.1:8546",
		PoA:                false,
		DialAttempts:       3,
		HealthCheckTimeout: 10 * time.Second,
		WaitTimeout:        2 * time.Minute,
		PollInterval:       time.Second,
	},
	Signer: SignerConfig{
		Strategy: "node",
		Owner:    "0xd489f87665ed713E602290BE7c01269Fc129f4Ea",
	},
	Compiler: CompilerConfig{Binary: "/usr/local/bin/solc"},
	Funding:  FundingConfig{AccountsFile: "accounts.yml", TargetEther: 50},
	Log:      LogConfig{Level: "debug"},
}

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("url", "~/.ethereum/geth.ipc", "")
	flags.Bool("poa", true, "")
	flags.Duration("wait-timeout", 0, "")
	flags.String("key", "", "")

	return flags
}

var flagKeys = map[string]string{
	"node.url":          "url",
	"node.poa":          "poa",
	"node.wait_timeout": "wait-timeout",
	"signer.key":        "key",
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8545", cfg.Node.URL)
	assert.True(t, cfg.Node.PoA)
	assert.Equal(t, uint(1), cfg.Node.DialAttempts)
	assert.Zero(t, cfg.Node.WaitTimeout)
	assert.Equal(t, "local", cfg.Signer.Strategy)
	assert.Equal(t, "solc", cfg.Compiler.Binary)
	assert.Equal(t, uint64(10_000), cfg.Funding.TargetEther)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load("testdata/config.yml", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fileCfg, cfg)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ETHDEPLOY_RPC_URL", "http://node:8545")
	t.Setenv("ETHDEPLOY_NODE_POA", "false")
	t.Setenv("ETHDEPLOY_OWNER_KEY", "0xc65f")
	t.Setenv("ETHDEPLOY_NODE_WAIT_TIMEOUT", "30s")
	t.Setenv("ETHDEPLOY_LOG_LEVEL", "warn")

	cfg, err := Load("testdata/config.yml", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://node:8545", cfg.Node.URL)
	assert.False(t, cfg.Node.PoA)
	assert.Equal(t, "0xc65f", cfg.Signer.Key)
	assert.Equal(t, 30*time.Second, cfg.Node.WaitTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	// untouched by the environment
	assert.Equal(t, "node", cfg.Signer.Strategy)
}

func TestLoad_Flags(t *testing.T) {
	t.Run("flag defaults", func(t *testing.T) {
		cfg, err := Load("", newFlags(t), flagKeys)
		require.NoError(t, err)

		assert.Equal(t, "~/.ethereum/geth.ipc", cfg.Node.URL)
		assert.True(t, cfg.Node.PoA)
		assert.Empty(t, cfg.Signer.Key)
	})

	t.Run("file overrides flag defaults", func(t *testing.T) {
		cfg, err := Load("testdata/config.yml", newFlags(t), flagKeys)
		require.NoError(t, err)

		assert.Equal(t, "ws://127.0.0.1:8546", cfg.Node.URL)
		assert.False(t, cfg.Node.PoA)
	})

	t.Run("set flags override everything", func(t *testing.T) {
		t.Setenv("ETHDEPLOY_NODE_URL", "http://env:8545")

		flags := newFlags(t)
		require.NoError(t, flags.Parse([]string{"--url", "http://flag:8545", "--poa=true", "--wait-timeout", "5s"}))

		cfg, err := Load("testdata/config.yml", flags, flagKeys)
		require.NoError(t, err)

		assert.Equal(t, "http://flag:8545", cfg.Node.URL)
		assert.True(t, cfg.Node.PoA)
		assert.Equal(t, 5*time.Second, cfg.Node.WaitTimeout)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := Load("", newFlags(t), map[string]string{"node.url": "rpc"})
		require.ErrorContains(t, err, `no flag "rpc" for config key node.url`)
	})
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("node: [\n"), 0o600))

	_, err := Load(path, nil, nil)
	require.ErrorContains(t, err, "failed to read config file")
}

func TestLoadAccounts(t *testing.T) {
	t.Parallel()

	t.Run("manifest", func(t *testing.T) {
		t.Parallel()

		got, err := LoadAccounts("testdata/accounts.yml")
		require.NoError(t, err)
		assert.Equal(t, []common.Address{
			common.HexToAddress("0xFC2a2b9A68514E3315f0Bd2a29e900DC1a815a1D"),
			common.HexToAddress("0x9575eB2a7804c43F68dC7998EB0f250832DF9f10"),
		}, got)
	})

	t.Run("toml manifest", func(t *testing.T) {
		t.Parallel()

		got, err := LoadAccounts("testdata/accounts.toml")
		require.NoError(t, err)
		assert.Equal(t, []common.Address{
			common.HexToAddress("0x6E387779Ed9d4578943556e4D58bF37a8DCEfA88"),
		}, got)
	})

	t.Run("yaml is not toml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "accounts.TOML")
		require.NoError(t, os.WriteFile(path, []byte("accounts:\n  - address: x\n"), 0o600))

		_, err := LoadAccounts(path)
		require.ErrorContains(t, err, "failed to decode accounts manifest")
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		got, err := LoadAccounts("")
		require.NoError(t, err)
		assert.Equal(t, funding.DefaultAccounts(), got)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadAccounts(filepath.Join(t.TempDir(), "accounts.yml"))
		require.ErrorContains(t, err, "failed to read accounts manifest")
	})

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "empty", give: "accounts: []\n", wantErr: "lists no accounts"},
		{name: "bad address", give: "accounts:\n  - name: x\n    address: \"0x1234\"\n", wantErr: `account 0 (x): invalid address "0x1234"`},
		{name: "not yaml", give: "accounts: {\n", wantErr: "failed to decode accounts manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "accounts.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.give), 0o600))

			_, err := LoadAccounts(path)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
