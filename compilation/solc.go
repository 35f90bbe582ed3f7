package compilation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/leftasexercise/ethdeploy/pkg/logger"
)

// DefaultBinary is the name of the solc executable looked up on PATH.
const DefaultBinary = "solc"

var versionRegexp = regexp.MustCompile(`\d+\.\d+\.\d+`)

// Solc runs the Solidity compiler in standard JSON mode.
type Solc struct {
	lggr   logger.Logger
	binary string
}

// SolcOption configures a Solc.
type SolcOption func(*Solc)

// WithBinary overrides the solc executable.
func WithBinary(binary string) SolcOption {
	return func(s *Solc) {
		s.binary = binary
	}
}

// NewSolc returns a compiler that runs the solc executable.
func NewSolc(lggr logger.Logger, opts ...SolcOption) *Solc {
	s := &Solc{
		lggr:   lggr,
		binary: DefaultBinary,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Version returns the version reported by solc --version.
func (s *Solc) Version(ctx context.Context) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, s.binary, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("error while executing %s:\nOUTPUT:\n%s\nERROR: %w", s.binary, string(out), err)
	}

	versionStr := versionRegexp.FindString(string(out))
	if versionStr == "" {
		return nil, fmt.Errorf("could not parse solc version from %q", strings.TrimSpace(string(out)))
	}

	return semver.NewVersion(versionStr)
}

// Compile runs the compiler on spec. Directories in allowPaths are passed to --allow-paths in
// addition to the ones of the spec.
func (s *Solc) Compile(ctx context.Context, spec *Spec, allowPaths ...string) (*Result, error) {
	if spec == nil || len(spec.Sources) == 0 {
		return nil, errors.New("compilation spec has no sources")
	}

	input, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode compilation spec: %w", err)
	}

	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}

	args := []string{"--standard-json"}
	if paths := append(append([]string{}, spec.AllowPaths()...), allowPaths...); len(paths) > 0 {
		args = append(args, "--allow-paths", strings.Join(paths, ","))
	}

	s.lggr.Infow("Running compiler", "binary", s.binary, "version", version.String())
	s.lggr.Debugw("Compiler arguments", "args", args, "sources", len(spec.Sources))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("error while executing %s:\n%s\nERROR: %w", s.binary, stderr.String(), err)
	}

	result, err := ParseOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	result.CompilerVersion = version

	for _, w := range result.Warnings() {
		s.lggr.Warnf("compiler: %s", w.String())
	}
	for _, source := range result.Sources() {
		s.lggr.Infow("Compiled source", "source", source, "contracts", result.ContractNames(source))
	}

	return result, nil
}
