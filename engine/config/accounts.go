package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/leftasexercise/ethdeploy/scenario/funding"
)

// AccountsManifest lists the accounts the fund-accounts command tops up.
type AccountsManifest struct {
	Accounts []ManifestAccount `yaml:"accounts" toml:"accounts"`
}

// ManifestAccount is an entry of an AccountsManifest.
type ManifestAccount struct {
	Name    string `yaml:"name,omitempty" toml:"name,omitempty"`
	Address string `yaml:"address" toml:"address"`
}

// LoadAccounts reads the account addresses from the manifest at path. Files with a .toml
// extension are decoded as TOML, all others as YAML. The default accounts of the funding scenario
// are returned when path is empty.
func LoadAccounts(path string) ([]common.Address, error) {
	if path == "" {
		return funding.DefaultAccounts(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts manifest: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}

	var manifest AccountsManifest
	if err := unmarshal(b, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode accounts manifest %s: %w", path, err)
	}

	return manifest.Addresses()
}

// Addresses validates the entries of the manifest and returns their addresses.
func (m AccountsManifest) Addresses() ([]common.Address, error) {
	if len(m.Accounts) == 0 {
		return nil, errors.New("accounts manifest lists no accounts")
	}

	addresses := make([]common.Address, 0, len(m.Accounts))
	for i, a := range m.Accounts {
		if !common.IsHexAddress(a.Address) {
			return nil, fmt.Errorf("account %d (%s): invalid address %q", i, a.Name, a.Address)
		}
		addresses = append(addresses, common.HexToAddress(a.Address))
	}

	return addresses, nil
}
