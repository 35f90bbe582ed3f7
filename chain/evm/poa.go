package evm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// proofOfAuthorityField is the name some clients and middlewares give to the clique vanity and
// seal bytes instead of extraData.
const proofOfAuthorityField = "proofOfAuthorityData"

// headerDefaults holds the zero values for header fields that go-ethereum requires when decoding
// a header but that proof-of-authority chains are known to omit.
var headerDefaults = map[string]any{
	"sha3Uncles": types.EmptyUncleHash,
	"miner":      common.Address{},
	"logsBloom":  types.Bloom{},
	"difficulty": (*hexutil.Big)(new(big.Int)),
	"mixHash":    common.Hash{},
	"nonce":      types.BlockNonce{},
	"extraData":  hexutil.Bytes{},
}

// NormalizeHeader rewrites a JSON encoded block header returned by a proof-of-authority node so
// that it decodes into a types.Header. The proofOfAuthorityData field is folded back into
// extraData and missing or null standard fields are filled with their zero values. Fields that
// are present are never modified.
func NormalizeHeader(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("failed to decode header: expected an object, got %s", string(raw))
	}

	if isJSONNull(fields["extraData"]) {
		if poa, ok := fields[proofOfAuthorityField]; ok && !isJSONNull(poa) {
			fields["extraData"] = poa
		}
	}
	delete(fields, proofOfAuthorityField)

	for key, value := range headerDefaults {
		if !isJSONNull(fields[key]) {
			continue
		}

		enc, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode default for header field %s: %w", key, err)
		}
		fields[key] = enc
	}

	return json.Marshal(fields)
}

// isJSONNull reports whether v is absent, empty or the JSON literal null.
func isJSONNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)

	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}
