// Package config loads sdrsim configuration files.
//
// Files are YAML (.yaml, .yml) or HCL (.hcl). Keys follow the koanf tags of
// the configuration structs; missing keys keep their defaults. Environment
// variables prefixed with SDRSIM_ override file values, "__" separating
// nesting levels:
//
//	SDRSIM_RECEIVER__WAVEFORM=qpsk
//	SDRSIM_SIMULATION__BURSTS=20
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-modem/dsp/transform"
	"github.com/cwbudde/algo-modem/internal/sim"
	"github.com/cwbudde/algo-modem/telecom/receiver"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "SDRSIM_"

// ErrFormat is returned for unsupported file extensions.
var ErrFormat = errors.New("config: unsupported file format")

// File is the content of a configuration file.
type File struct {
	// Transform names the FFT backend of the correlator and the frequency
	// estimator (see transform.ByName).
	Transform  string          `koanf:"transform" yaml:"transform"`
	Receiver   receiver.Config `koanf:"receiver" yaml:"receiver"`
	Simulation sim.Config      `koanf:"simulation" yaml:"simulation"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Transform:  transform.BackendAlgoFFT,
		Receiver:   receiver.DefaultConfig(),
		Simulation: sim.DefaultConfig(),
	}
}

func parser(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".hcl":
		return hcl.Parser(true), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, path)
}

// Load reads path over the defaults and applies environment overrides. An
// empty path loads the environment alone.
func Load(path string) (File, error) {
	k := koanf.New(".")
	if path != "" {
		p, err := parser(path)
		if err != nil {
			return File{}, err
		}
		if err := k.Load(file.Provider(path), p); err != nil {
			return File{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil)
	if err != nil {
		return File{}, fmt.Errorf("config: environment: %w", err)
	}

	out := Default()
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return File{}, fmt.Errorf("config: decode: %w", err)
	}
	return out, nil
}

// Dump writes f as YAML.
func Dump(w io.Writer, f File) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}
