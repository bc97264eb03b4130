package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, merges it over
// [Default], and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, merges it over [Default],
// and validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	patch := &Config{}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(patch); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	cfg := Merge(Default(), patch)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent, usable configuration. It
// returns a joined error listing every failure found rather than stopping
// at the first one.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Listener.SampleRate <= 0 {
		errs = append(errs, errInvalid("listener.sample_rate", "must be positive"))
	}
	if cfg.Listener.SampleWidth != 1 && cfg.Listener.SampleWidth != 2 && cfg.Listener.SampleWidth != 4 {
		errs = append(errs, errInvalid("listener.sample_width", "must be 1, 2, or 4 bytes"))
	}
	if cfg.Listener.EnergyRatio <= 0 {
		errs = append(errs, errInvalid("listener.energy_ratio", "must be positive"))
	}
	if cfg.Listener.Multiplier <= 0 {
		errs = append(errs, errInvalid("listener.multiplier", "must be positive"))
	}

	if cfg.STT.Module == "" {
		errs = append(errs, errInvalid("stt.module", "is required"))
	}
	if cfg.STT.FallbackModule != "" && cfg.STT.FallbackModule == cfg.STT.Module {
		errs = append(errs, errInvalid("stt.fallback_module", "must differ from stt.module"))
	}

	for name, hw := range cfg.Hotwords {
		if hw.Module == "" {
			errs = append(errs, errInvalid(fmt.Sprintf("hotwords[%s].module", name), "is required"))
		}
	}

	if cfg.Lang == "" {
		errs = append(errs, errInvalid("lang", "is required"))
	}

	return errors.Join(errs...)
}
