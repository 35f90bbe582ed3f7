// Package config loads the settings of the ethdeploy commands from an optional YAML file, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NodeConfig is the configuration of the connection to the node.
type NodeConfig struct {
	URL                string        `mapstructure:"url" yaml:"url"`                                   // HTTP(S), WS(S) URL or IPC socket path
	PoA                bool          `mapstructure:"poa" yaml:"poa"`                                   // Normalize proof-of-authority headers
	DialAttempts       uint          `mapstructure:"dial_attempts" yaml:"dial_attempts"`               // Attempts to establish the connection
	HealthCheckTimeout time.Duration `mapstructure:"health_check_timeout" yaml:"health_check_timeout"` // Bound of the liveness check
	WaitTimeout        time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`                 // Bound of a receipt wait, zero waits forever
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`               // Receipt polling interval
}

// SignerConfig selects how transactions are signed.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type SignerConfig struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy"` // "local" or "node"
	Owner    string `mapstructure:"owner" yaml:"owner"`       // The account transactions are sent from
	Key      string `mapstructure:"key" yaml:"key"`           // Secret: The private key of the owner for local signing
}

// CompilerConfig is the configuration of the Solidity compiler.
type CompilerConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"` // The solc executable
}

// FundingConfig is the configuration of the fund-accounts command.
type FundingConfig struct {
	AccountsFile string `mapstructure:"accounts_file" yaml:"accounts_file"` // YAML manifest of the accounts to fund
	TargetEther  uint64 `mapstructure:"target_ether" yaml:"target_ether"`   // Target balance in ether
}

// LogConfig is the configuration of the logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config wraps the entire configuration of a command.
type Config struct {
	Node     NodeConfig     `mapstructure:"node" yaml:"node"`
	Signer   SignerConfig   `mapstructure:"signer" yaml:"signer"`
	Compiler CompilerConfig `mapstructure:"compiler" yaml:"compiler"`
	Funding  FundingConfig  `mapstructure:"funding" yaml:"funding"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	// Report is the path the operation reports are written to, none are written when empty.
	Report string `mapstructure:"report" yaml:"report"`
}

// defaults applies to keys that no flag of the command provides.
var defaults = map[string]any{
	"node.url":                  "http://127.0.0.1:8545",
	"node.poa":                  true,
	"node.dial_attempts":        1,
	"node.health_check_timeout": 10 * time.Second,
	"node.poll_interval":        time.Second,
	"signer.strategy":           "local",
	"compiler.binary":           "solc",
	"funding.target_ether":      10_000,
	"log.level":                 "info",
}

// envBindings maps config keys to the environment variables that can provide their value. The
// first variable that is set wins.
var envBindings = map[string][]string{
	"node.url":                  {"ETHDEPLOY_NODE_URL", "ETHDEPLOY_RPC_URL"},
	"node.poa":                  {"ETHDEPLOY_NODE_POA"},
	"node.dial_attempts":        {"ETHDEPLOY_NODE_DIAL_ATTEMPTS"},
	"node.health_check_timeout": {"ETHDEPLOY_NODE_HEALTH_CHECK_TIMEOUT"},
	"node.wait_timeout":         {"ETHDEPLOY_NODE_WAIT_TIMEOUT"},
	"node.poll_interval":        {"ETHDEPLOY_NODE_POLL_INTERVAL"},
	"signer.strategy":           {"ETHDEPLOY_SIGNER_STRATEGY"},
	"signer.owner":              {"ETHDEPLOY_SIGNER_OWNER", "ETHDEPLOY_OWNER"},
	"signer.key":                {"ETHDEPLOY_SIGNER_KEY", "ETHDEPLOY_OWNER_KEY"},
	"compiler.binary":           {"ETHDEPLOY_COMPILER_BINARY", "SOLC_BINARY"},
	"funding.accounts_file":     {"ETHDEPLOY_FUNDING_ACCOUNTS_FILE"},
	"funding.target_ether":      {"ETHDEPLOY_FUNDING_TARGET_ETHER"},
	"log.level":                 {"ETHDEPLOY_LOG_LEVEL"},
	"report":                    {"ETHDEPLOY_REPORT"},
}

// Load loads the config from the file path, the environment and flags, in increasing order of
// precedence. The file is optional: a missing file is skipped. flagKeys maps config keys to the
// names of the flags that set them. A flag only overrides the other sources when it was set on the
// command line, its default is used when no other source provides the key.
func Load(filePath string, flags *pflag.FlagSet, flagKeys map[string]string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		// viper prefers defaults over the defaults of bound flags
		if _, ok := flagKeys[key]; !ok {
			v.SetDefault(key, value)
		}
	}

	if err := bindEnvs(v); err != nil {
		return nil, err
	}
	if err := bindFlags(v, flags, flagKeys); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, flagKeys map[string]string) error {
	if flags == nil {
		return nil
	}

	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("no flag %q for config key %s", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}

	return nil
}
