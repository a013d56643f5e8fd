package compiler

import (
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// ConfigFile is the optional project configuration looked up at the root of
// a generate run.
const ConfigFile = "godwit.hcl"

// Config controls a generate run. Zero values mean the defaults.
type Config struct {
	// Backend names the code generation backend, "writer" or "gomponents".
	Backend string `hcl:"backend,optional"`
	// Suffix replaces the ".gw" extension on output files.
	Suffix string `hcl:"suffix,optional"`
	// Package overrides the package clause of every compiled file.
	Package string `hcl:"package,optional"`
	// Patterns are doublestar globs selecting template files, relative to
	// the project root.
	Patterns []string `hcl:"patterns,optional"`
}

// DefaultConfig returns the configuration used when no godwit.hcl exists.
func DefaultConfig() *Config {
	return &Config{
		Backend:  string(BackendWriter),
		Suffix:   ".gw.go",
		Patterns: []string{"**/*.gw"},
	}
}

// LoadConfig reads godwit.hcl from root if present and fills unset fields
// with the defaults.
func LoadConfig(fsys afero.Fs, root string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(root, ConfigFile)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if ok, _ := afero.Exists(fsys, path); !ok {
			return cfg, nil
		}
		return nil, errors.Errorf("reading %s: %w", path, err)
	}

	file, diags := hclparse.NewParser().ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing %s: %w", path, diags)
	}

	var loaded Config
	if diags := gohcl.DecodeBody(file.Body, nil, &loaded); diags.HasErrors() {
		return nil, errors.Errorf("decoding %s: %w", path, diags)
	}

	if loaded.Backend != "" {
		if _, err := ParseBackend(loaded.Backend); err != nil {
			return nil, errors.Errorf("%s: %w", path, err)
		}
		cfg.Backend = loaded.Backend
	}
	if loaded.Suffix != "" {
		cfg.Suffix = loaded.Suffix
	}
	if loaded.Package != "" {
		cfg.Package = loaded.Package
	}
	if len(loaded.Patterns) > 0 {
		cfg.Patterns = loaded.Patterns
	}
	return cfg, nil
}
