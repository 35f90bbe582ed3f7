package compilation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		give           string
		wantKey        string
		wantAllowPaths []string
		wantErr        string
	}{
		{
			name:           "relative path",
			give:           "contracts/NFT.sol",
			wantKey:        "NFT.sol",
			wantAllowPaths: []string{".", "contracts"},
		},
		{
			name:           "file in working directory",
			give:           "NFT.sol",
			wantKey:        "NFT.sol",
			wantAllowPaths: []string{"."},
		},
		{
			name:    "empty",
			wantErr: "source path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec, key, err := NewFileSpec(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantAllowPaths, spec.AllowPaths())
			assert.Equal(t, []string{tt.give}, spec.Sources[key].URLs)
		})
	}
}

func TestSpec_JSON(t *testing.T) {
	t.Parallel()

	spec, err := NewInlineSpec("CallTrace", "contract Echo {}")
	require.NoError(t, err)

	b, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"language": "Solidity",
		"sources": {"CallTrace": {"content": "contract Echo {}"}},
		"settings": {
			"optimizer": {"enabled": true},
			"outputSelection": {"*": {"*": ["metadata", "evm.bytecode", "abi"]}}
		}
	}`, string(b))
	assert.Empty(t, spec.AllowPaths())
}

func TestNewInlineSpec_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewInlineSpec("", "contract A {}")
	require.ErrorContains(t, err, "source key is required")

	_, err = NewInlineSpec("A", "")
	require.ErrorContains(t, err, "source A is empty")
}
