package evm

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devKey     = "0xc65f2e9b1c360d44070ede41d5e999d30c23657e2c5889d3d03cef39289cea7c"
	devAddress = "0xFC2a2b9A68514E3315f0Bd2a29e900DC1a815a1D"
)

func TestNewLocalSigner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		give     string
		wantAddr common.Address
		wantErr  string
	}{
		{
			name:     "with prefix",
			give:     devKey,
			wantAddr: common.HexToAddress(devAddress),
		},
		{
			name:     "without prefix",
			give:     devKey[2:],
			wantAddr: common.HexToAddress(devAddress),
		},
		{
			name:    "empty",
			give:    "",
			wantErr: "private key is required",
		},
		{
			name:    "malformed",
			give:    "0xnotakey",
			wantErr: "failed to convert private key to ECDSA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			signer, err := NewLocalSigner(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, signer.Address())
		})
	}
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	other := common.HexToAddress("0xd489f87665ed713E602290BE7c01269Fc129f4Ea")

	tests := []struct {
		name     string
		strategy SignerStrategy
		account  Account
		wantType Sender
		wantErr  string
	}{
		{
			name:     "local",
			strategy: SignerLocal,
			account:  Account{Address: common.HexToAddress(devAddress), Key: devKey},
			wantType: &LocalSigner{},
		},
		{
			name:     "local without address",
			strategy: SignerLocal,
			account:  Account{Key: devKey},
			wantType: &LocalSigner{},
		},
		{
			name:     "local with mismatching address",
			strategy: SignerLocal,
			account:  Account{Address: other, Key: devKey},
			wantErr:  "private key belongs to " + devAddress,
		},
		{
			name:     "node",
			strategy: SignerNode,
			account:  Account{Address: other},
			wantType: &NodeManagedSender{},
		},
		{
			name:     "node without address",
			strategy: SignerNode,
			wantErr:  "requires an account address",
		},
		{
			name:     "unknown",
			strategy: SignerStrategy("kms"),
			wantErr:  `unknown signer strategy "kms"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender, err := NewSender(tt.strategy, &fakeRPC{}, tt.account)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sender)
		})
	}
}

func TestParseSignerStrategy(t *testing.T) {
	t.Parallel()

	got, err := ParseSignerStrategy(" Node ")
	require.NoError(t, err)
	assert.Equal(t, SignerNode, got)

	got, err = ParseSignerStrategy("local")
	require.NoError(t, err)
	assert.Equal(t, SignerLocal, got)

	_, err = ParseSignerStrategy("ledger")
	require.ErrorContains(t, err, `unknown signer strategy "ledger"`)
}

func TestNodeManagedSender_Send(t *testing.T) {
	t.Parallel()

	var (
		from = common.HexToAddress("0xd489f87665ed713E602290BE7c01269Fc129f4Ea")
		to   = common.HexToAddress(devAddress)
		hash = "0x1a2b000000000000000000000000000000000000000000000000000000000000"
	)

	t.Run("sends the draft unsigned", func(t *testing.T) {
		t.Parallel()

		rpc := &fakeRPC{responses: map[string]string{"eth_sendTransaction": `"` + hash + `"`}}
		sender := NewNodeManagedSender(rpc, from)
		draft := &Draft{
			From:     from,
			To:       &to,
			Nonce:    3,
			Gas:      21000,
			Value:    big.NewInt(10),
			GasPrice: big.NewInt(1_000_000_000),
		}

		got, err := sender.Send(context.Background(), nil, draft)
		require.NoError(t, err)
		assert.Equal(t, common.HexToHash(hash), got)

		require.Len(t, rpc.calls, 1)
		assert.Equal(t, "eth_sendTransaction", rpc.calls[0].Method)
		require.Len(t, rpc.calls[0].Args, 1)

		encoded, err := json.Marshal(rpc.calls[0].Args[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"from": "0xd489f87665ed713e602290be7c01269fc129f4ea",
			"to": "0xfc2a2b9a68514e3315f0bd2a29e900dc1a815a1d",
			"gas": "0x5208",
			"gasPrice": "0x3b9aca00",
			"value": "0xa",
			"nonce": "0x3"
		}`, string(encoded))
	})

	t.Run("node rejects", func(t *testing.T) {
		t.Parallel()

		rpc := &fakeRPC{errs: map[string]error{"eth_sendTransaction": errors.New("authentication needed: password or unlock")}}
		sender := NewNodeManagedSender(rpc, from)

		_, err := sender.Send(context.Background(), nil, &Draft{From: from})
		require.ErrorContains(t, err, "authentication needed")
	})
}
