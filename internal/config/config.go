// Package config loads pdbview settings from defaults, an optional YAML or
// TOML file and PDBVIEW_* environment variables. Command-line flags are
// applied last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Format selects the output projection.
type Format string

const (
	FormatPlain   Format = "plain"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Formats lists the accepted formats.
var Formats = []Format{FormatPlain, FormatJSON, FormatMsgpack}

var _ pflag.Value = (*Format)(nil)

// String implements pflag.Value.
func (f *Format) String() string { return string(*f) }

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	v := Format(strings.ToLower(s))
	if err := v.validate(); err != nil {
		return err
	}
	*f = v
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string { return "format" }

func (f Format) validate() error {
	for _, ok := range Formats {
		if f == ok {
			return nil
		}
	}
	return &InvalidValueError{Param: "format", Value: string(f), Reason: "want plain, json or msgpack"}
}

// ColorMode controls colored plain output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Config holds the resolved settings.
type Config struct {
	Format      Format    `yaml:"format" toml:"format" env:"PDBVIEW_FORMAT"`
	BaseAddress string    `yaml:"base_address" toml:"base_address" env:"PDBVIEW_BASE_ADDRESS"`
	Color       ColorMode `yaml:"color" toml:"color" env:"PDBVIEW_COLOR"`
	LogLevel    string    `yaml:"log_level" toml:"log_level" env:"PDBVIEW_LOG_LEVEL"`
	Debug       bool      `yaml:"debug" toml:"debug" env:"PDBVIEW_DEBUG"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:   FormatPlain,
		Color:    ColorAuto,
		LogLevel: "warn",
	}
}

// InvalidValueError reports a setting with an unacceptable value.
type InvalidValueError struct {
	Param  string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Param, e.Reason)
}

// Load returns the defaults overlaid with the file at path (when path is
// not empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := LoadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the settings of a .yaml, .yml or .toml file onto cfg.
// Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("failed to parse %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return &InvalidValueError{Param: "config", Value: path, Reason: "want a .yaml, .yml or .toml file"}
	}
	return nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if err := c.Format.validate(); err != nil {
		return err
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return &InvalidValueError{Param: "color", Value: string(c.Color), Reason: "want auto, always or never"}
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return &InvalidValueError{Param: "log-level", Value: c.LogLevel, Reason: "want trace, debug, info, warn or error"}
	}
	_, err := c.Base()
	return err
}

// Base parses BaseAddress. Hex values take a 0x prefix; an empty value is 0.
func (c Config) Base() (int64, error) {
	s := strings.TrimSpace(c.BaseAddress)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, &InvalidValueError{Param: "base-address", Value: s, Reason: "not a decimal or 0x-prefixed number"}
	}
	// Addresses above the signed range, such as kernel-space load
	// addresses, keep their bit pattern; relocation wraps modulo 2^64.
	return int64(u), nil
}
