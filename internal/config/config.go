package config

// Configuration loading and validation for pccov

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/pccov/internal/disasm"
	"github.com/tturner/pccov/internal/errors"
	"github.com/tturner/pccov/internal/sweep"
)

// DefaultTimeout bounds one disassembler invocation.
const DefaultTimeout = 60 * time.Second

// Config is the full run configuration.
type Config struct {
	TestName     string             `yaml:"test_name"`
	EmitTotals   bool               `yaml:"emit_totals"`
	Disassembler DisassemblerConfig `yaml:"disassembler"`
	Sources      SourcesConfig      `yaml:"sources"`
	// URIMappings maps URI prefixes to file:// URIs or absolute directories.
	URIMappings map[string]string `yaml:"uri_mappings" validate:"dive,keys,uriprefix,endkeys,mapping_target"`
}

// DisassemblerConfig configures the static backfill subprocess.
type DisassemblerConfig struct {
	Shell   string        `yaml:"shell"`
	Args    []string      `yaml:"args" validate:"dive,required"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	Jobs    int           `yaml:"jobs" validate:"gte=1,lte=256"`
}

// SourcesConfig selects files during the directory sweep.
type SourcesConfig struct {
	Include []string `yaml:"include" validate:"min=1,dive,required,glob"`
	Exclude []string `yaml:"exclude" validate:"dive,required,glob"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Disassembler: DisassemblerConfig{
			Shell:   disasm.DefaultShell,
			Args:    append([]string(nil), disasm.DefaultArgs...),
			Timeout: DefaultTimeout,
			Jobs:    runtime.NumCPU(),
		},
		Sources: SourcesConfig{
			Include: append([]string(nil), sweep.DefaultInclude...),
			Exclude: []string{},
		},
		URIMappings: map[string]string{},
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Load reads a YAML configuration on top of the defaults. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
	}
	defer f.Close()

	if err := Decode(f, cfg); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return cfg, nil
}

// Decode reads YAML from r into cfg, keeping values for absent keys.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}
