package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const callTracer = "callTracer"

// CallFrame is a node of the call tree produced by the callTracer.
type CallFrame struct {
	Type         string          `json:"type"`
	From         common.Address  `json:"from"`
	To           *common.Address `json:"to,omitempty"`
	Value        *hexutil.Big    `json:"value,omitempty"`
	Gas          hexutil.Uint64  `json:"gas"`
	GasUsed      hexutil.Uint64  `json:"gasUsed"`
	Input        hexutil.Bytes   `json:"input"`
	Output       hexutil.Bytes   `json:"output,omitempty"`
	Error        string          `json:"error,omitempty"`
	RevertReason string          `json:"revertReason,omitempty"`
	Calls        []CallFrame     `json:"calls,omitempty"`
}

// Walk visits the frame and its subcalls in pre-order, which is the order in which they were
// executed. Walking stops as soon as fn returns false.
func (f *CallFrame) Walk(fn func(depth int, frame *CallFrame) bool) {
	f.walk(0, fn)
}

func (f *CallFrame) walk(depth int, fn func(int, *CallFrame) bool) bool {
	if !fn(depth, f) {
		return false
	}
	for i := range f.Calls {
		if !f.Calls[i].walk(depth+1, fn) {
			return false
		}
	}

	return true
}

// Flatten returns the frame and all of its subcalls in execution order.
func (f *CallFrame) Flatten() []*CallFrame {
	var frames []*CallFrame
	f.Walk(func(_ int, frame *CallFrame) bool {
		frames = append(frames, frame)
		return true
	})

	return frames
}

// Is reports whether the frame has the given type (case insensitive) and endpoints.
func (f *CallFrame) Is(callType string, from, to common.Address) bool {
	return strings.EqualFold(f.Type, callType) && f.From == from && f.To != nil && *f.To == to
}

// TxTrace is the trace of one transaction in a block.
type TxTrace struct {
	TxHash common.Hash `json:"txHash"`
	Result *CallFrame  `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// BlockTrace is the result of debug_traceBlockByNumber. Raw keeps the response as returned by the
// node for display.
type BlockTrace struct {
	Raw          json.RawMessage `json:"-"`
	Transactions []TxTrace       `json:"transactions"`
}

// Find returns the trace of the transaction with the given hash.
func (b *BlockTrace) Find(hash common.Hash) (*TxTrace, bool) {
	for i := range b.Transactions {
		if b.Transactions[i].TxHash == hash {
			return &b.Transactions[i], true
		}
	}

	return nil, false
}

// Indent returns the raw trace indented by four spaces.
func (b *BlockTrace) Indent() (string, error) {
	var out strings.Builder
	var v any
	if err := json.Unmarshal(b.Raw, &v); err != nil {
		return "", fmt.Errorf("failed to decode trace: %w", err)
	}
	enc := json.NewEncoder(&out)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode trace: %w", err)
	}

	return strings.TrimRight(out.String(), "\n"), nil
}

// TraceBlockByNumber retrieves the call traces of all transactions of a block through the debug
// namespace. The node must have it enabled.
func TraceBlockByNumber(ctx context.Context, rpc RPCCaller, number *big.Int) (*BlockTrace, error) {
	if number == nil {
		return nil, errors.New("block number is required")
	}

	var raw json.RawMessage
	cfg := map[string]any{"tracer": callTracer}
	if err := rpc.CallContext(ctx, &raw, "debug_traceBlockByNumber", hexutil.EncodeBig(number), cfg); err != nil {
		return nil, fmt.Errorf("failed to trace block %s: %w", number, err)
	}

	var txs []TxTrace
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode trace of block %s: %w", number, err)
	}

	return &BlockTrace{Raw: raw, Transactions: txs}, nil
}
