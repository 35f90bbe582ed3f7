package compilation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrContractNotFound is returned when a compilation result has no contract of the requested name.
var ErrContractNotFound = errors.New("contract not found in compilation result")

// Diagnostic is an error or warning reported by the compiler.
type Diagnostic struct {
	Severity         string `json:"severity"`
	Type             string `json:"type"`
	Component        string `json:"component"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

func (d Diagnostic) String() string {
	if d.FormattedMessage != "" {
		return strings.TrimSpace(d.FormattedMessage)
	}

	return fmt.Sprintf("%s: %s", d.Type, d.Message)
}

// CompilationError is returned when the compiler reports at least one diagnostic of severity
// error. It carries every diagnostic of the run, including warnings.
type CompilationError struct {
	Diagnostics []Diagnostic
}

func (e *CompilationError) Error() string {
	var msgs []string
	for _, d := range e.Diagnostics {
		if d.Severity == "error" {
			msgs = append(msgs, d.String())
		}
	}

	return "compilation failed:\n" + strings.Join(msgs, "\n")
}

// Contract is a compiled contract.
type Contract struct {
	Name     string
	ABI      abi.ABI
	RawABI   json.RawMessage
	Bytecode []byte
	Metadata string
}

// Result is the parsed standard JSON output of the compiler, keyed by source and contract name.
type Result struct {
	contracts   map[string]map[string]*Contract
	Diagnostics []Diagnostic
	// CompilerVersion is set by Solc.Compile, nil when the output was parsed directly.
	CompilerVersion *semver.Version
}

// Contract returns the contract name compiled from source.
func (r *Result) Contract(source, name string) (*Contract, error) {
	contracts, ok := r.contracts[source]
	if !ok {
		return nil, fmt.Errorf("%w: no source %s", ErrContractNotFound, source)
	}
	c, ok := contracts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s (available: %s)",
			ErrContractNotFound, name, source, strings.Join(r.ContractNames(source), ", "))
	}

	return c, nil
}

// ContractNames returns the sorted names of the contracts compiled from source.
func (r *Result) ContractNames(source string) []string {
	names := make([]string, 0, len(r.contracts[source]))
	for name := range r.contracts[source] {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Sources returns the sorted keys of the compiled sources.
func (r *Result) Sources() []string {
	keys := make([]string, 0, len(r.contracts))
	for key := range r.contracts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// Warnings returns the diagnostics that did not fail the compilation.
func (r *Result) Warnings() []Diagnostic {
	var warnings []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity != "error" {
			warnings = append(warnings, d)
		}
	}

	return warnings
}

type standardOutput struct {
	Errors    []Diagnostic                                  `json:"errors"`
	Contracts map[string]map[string]standardOutputContract `json:"contracts"`
}

type standardOutputContract struct {
	ABI      json.RawMessage `json:"abi"`
	Metadata string          `json:"metadata"`
	EVM      struct {
		Bytecode struct {
			Object string `json:"object"`
		} `json:"bytecode"`
	} `json:"evm"`
}

// ParseOutput parses the standard JSON output of solc. Diagnostics of severity error are returned
// as a *CompilationError.
func ParseOutput(out []byte) (*Result, error) {
	var raw standardOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode compiler output: %w", err)
	}

	for _, d := range raw.Errors {
		if d.Severity == "error" {
			return nil, &CompilationError{Diagnostics: raw.Errors}
		}
	}

	result := &Result{
		contracts:   make(map[string]map[string]*Contract, len(raw.Contracts)),
		Diagnostics: raw.Errors,
	}
	for source, contracts := range raw.Contracts {
		result.contracts[source] = make(map[string]*Contract, len(contracts))
		for name, c := range contracts {
			if len(c.ABI) == 0 {
				c.ABI = json.RawMessage("[]")
			}
			parsed, err := abi.JSON(bytes.NewReader(c.ABI))
			if err != nil {
				return nil, fmt.Errorf("failed to parse ABI of %s in %s: %w", name, source, err)
			}

			bytecode, err := hexutil.Decode(withHexPrefix(c.EVM.Bytecode.Object))
			if err != nil {
				return nil, fmt.Errorf("failed to decode bytecode of %s in %s: %w", name, source, err)
			}

			result.contracts[source][name] = &Contract{
				Name:     name,
				ABI:      parsed,
				RawABI:   c.ABI,
				Bytecode: bytecode,
				Metadata: c.Metadata,
			}
		}
	}

	return result, nil
}

// withHexPrefix adds the 0x prefix solc omits. Interfaces and abstract contracts have an empty
// bytecode object.
func withHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}

	return "0x" + s
}
