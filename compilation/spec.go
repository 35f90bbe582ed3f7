package compilation

import (
	"errors"
	"fmt"
	"path/filepath"
)

// LanguageSolidity is the only source language supported.
const LanguageSolidity = "Solidity"

// defaultOutputSelection requests the artifacts needed to deploy and describe a contract.
var defaultOutputSelection = map[string]map[string][]string{
	"*": {
		"*": {"metadata", "evm.bytecode", "abi"},
	},
}

// Spec is the standard JSON input of solc.
type Spec struct {
	Language string            `json:"language"`
	Sources  map[string]Source `json:"sources"`
	Settings Settings          `json:"settings"`

	allowPaths []string
}

// Source is either inline content or a list of URLs (file paths) the compiler reads itself.
type Source struct {
	Content string   `json:"content,omitempty"`
	URLs    []string `json:"urls,omitempty"`
}

type Settings struct {
	Optimizer       Optimizer                      `json:"optimizer"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

type Optimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs,omitempty"`
}

// NewFileSpec returns a spec which compiles the Solidity file at path with the optimizer enabled.
// The source is keyed by the base name of the file, which is also returned. The directory of the
// file is added to the allowed paths.
func NewFileSpec(path string) (*Spec, string, error) {
	if path == "" {
		return nil, "", errors.New("source path is required")
	}

	key := filepath.Base(path)
	dir := filepath.Dir(path)

	spec := newSpec(map[string]Source{
		key: {URLs: []string{path}},
	})
	spec.allowPaths = []string{"."}
	if dir != "." {
		spec.allowPaths = append(spec.allowPaths, dir)
	}

	return spec, key, nil
}

// NewInlineSpec returns a spec which compiles the given source code under the given key with the
// optimizer enabled.
func NewInlineSpec(key, content string) (*Spec, error) {
	if key == "" {
		return nil, errors.New("source key is required")
	}
	if content == "" {
		return nil, fmt.Errorf("source %s is empty", key)
	}

	return newSpec(map[string]Source{
		key: {Content: content},
	}), nil
}

func newSpec(sources map[string]Source) *Spec {
	return &Spec{
		Language: LanguageSolidity,
		Sources:  sources,
		Settings: Settings{
			Optimizer:       Optimizer{Enabled: true},
			OutputSelection: defaultOutputSelection,
		},
	}
}

// AllowPaths returns the directories the compiler may read imports and URL sources from.
func (s *Spec) AllowPaths() []string {
	return s.allowPaths
}
