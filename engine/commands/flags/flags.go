// Package flags provides reusable flag helpers for the ethdeploy commands.
//
// This package should only contain common flags that are used by multiple commands to ensure
// unified naming and consistent behavior. Command-specific flags are defined locally in the
// command file.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func MustBool(b bool, _ error) bool { return b }

// MustUint64 returns the uint64 value, ignoring the error.
// Safe to use with registered flags where GetUint64 cannot fail.
func MustUint64(u uint64, _ error) uint64 { return u }

// configKeys maps config keys to the common flags that set them.
var configKeys = map[string]string{
	"node.url":              "url",
	"node.poa":              "poa",
	"node.wait_timeout":     "wait-timeout",
	"signer.strategy":       "signer",
	"signer.owner":          "owner",
	"signer.key":            "key",
	"funding.accounts_file": "accounts",
	"funding.target_ether":  "target-ether",
	"log.level":             "log-level",
	"report":                "report",
}

// ConfigKeys returns the config keys set by the flags registered on the flag set, keyed by config
// key. The result is passed to config.Load.
func ConfigKeys(fs *pflag.FlagSet) map[string]string {
	keys := make(map[string]string)
	for key, name := range configKeys {
		if fs.Lookup(name) != nil {
			keys[key] = name
		}
	}

	return keys
}

// Config adds the --config/-c flag for the path of an optional YAML config file.
// Retrieve the value with cmd.Flags().GetString("config").
func Config(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path of a YAML config file (optional)")
}

// LogLevel adds the --log-level flag (default: info).
func LogLevel(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// Report adds the --report flag for the path the operation reports are written to.
func Report(cmd *cobra.Command) {
	cmd.Flags().String("report", "", "Write the operation reports as JSON to this file")
}

// Node adds the flags of the node connection:
//
//	--url            the HTTP(S) or WS(S) URL or the IPC socket path of the node
//	--poa            normalize proof-of-authority block headers (default: true)
//	--wait-timeout   bound of every receipt wait, zero waits forever (default: 0)
func Node(cmd *cobra.Command, defaultURL string) {
	cmd.Flags().String("url", defaultURL, "URL or IPC socket path of the node")
	cmd.Flags().Bool("poa", true, "Normalize proof-of-authority block headers")
	cmd.Flags().Duration("wait-timeout", 0, "Maximum time to wait for a receipt, 0 waits forever")
}

// SignerDefaults are the defaults of the signer flags of a command.
type SignerDefaults struct {
	Strategy string
	Owner    string
	Key      string
}

// Signer adds the --signer, --owner and --key flags.
func Signer(cmd *cobra.Command, defaults SignerDefaults) {
	cmd.Flags().String("signer", defaults.Strategy, `How transactions are signed: "local" with --key or "node"`)
	cmd.Flags().String("owner", defaults.Owner, "Address transactions are sent from")
	cmd.Flags().String("key", defaults.Key, "Private key of the owner, used by the local signer")
}

// Gas adds the --gas flag for the gas limit of a deployment.
// Retrieve the value with cmd.Flags().GetUint64("gas").
func Gas(cmd *cobra.Command, defaultValue uint64) {
	cmd.Flags().Uint64("gas", defaultValue, "Gas limit for the deployment")
}

// Common adds the flags every command shares: --config, --log-level and --report.
func Common(cmd *cobra.Command) {
	Config(cmd)
	LogLevel(cmd)
	Report(cmd)
}

