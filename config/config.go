// Package config loads chainreaction settings from a YAML file and
// CHAINREACTION_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/brensch/chainreaction/logging"
	"github.com/brensch/chainreaction/players"
)

const envPrefix = "CHAINREACTION_"

// Config holds everything a batch run needs.
type Config struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Games is the number of games in a batch.
	Games int `yaml:"games"`

	// Players names the strategy of every seat, in turn order.
	Players []string `yaml:"players"`

	// Seed seeds every player's random source. Zero picks a time-based seed.
	Seed int64 `yaml:"seed"`

	Logging LoggingConfig `yaml:"logging"`
	Archive ArchiveConfig `yaml:"archive"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is one of text, json, pretty.
	Format string `yaml:"format"`
}

// ArchiveConfig enables the per-game Parquet archive when Dir is set.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// LedgerConfig enables the SQLite batch ledger when Path is set.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// BridgeConfig enables the WebSocket status bridge when Addr is set.
type BridgeConfig struct {
	Addr     string        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
}

func Default() *Config {
	return &Config{
		Width:   5,
		Height:  5,
		Games:   100,
		Players: []string{players.NameRandom, players.NameRandom},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Bridge: BridgeConfig{
			Interval: 500 * time.Millisecond,
		},
	}
}

// Load returns the defaults, overlaid with the YAML file at path (if path is
// non-empty) and then with the environment.
func Load(path string) (*Config, error) {
	return LoadFiles(path, "")
}

// LoadFiles is Load with an optional dotenv file. Variables in envFile only
// apply when the process environment does not set them.
func LoadFiles(path, envFile string) (*Config, error) {
	lookup := os.LookupEnv
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
		lookup = func(key string) (string, bool) {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
			v, ok := fileEnv[key]
			return v, ok
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from CHAINREACTION_* variables found by lookup.
// Malformed numbers are reported rather than ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}
	intVar := func(name string, dst *int) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	if err := intVar("WIDTH", &c.Width); err != nil {
		return err
	}
	if err := intVar("HEIGHT", &c.Height); err != nil {
		return err
	}
	if err := intVar("GAMES", &c.Games); err != nil {
		return err
	}
	if v, ok := get("PLAYERS"); ok {
		c.Players = SplitPlayers(v)
	}
	if v, ok := get("SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", envPrefix, err)
		}
		c.Seed = n
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Logging.Format = v
	}
	if v, ok := get("ARCHIVE_DIR"); ok {
		c.Archive.Dir = v
	}
	if v, ok := get("LEDGER_PATH"); ok {
		c.Ledger.Path = v
	}
	if v, ok := get("BRIDGE_ADDR"); ok {
		c.Bridge.Addr = v
	}
	return nil
}

// SplitPlayers parses a comma-separated list of strategy names.
func SplitPlayers(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks that the configuration describes a runnable batch.
func (c *Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("board must be at least 1x1, got %dx%d", c.Width, c.Height)
	}
	if c.Games < 0 {
		return fmt.Errorf("games must be non-negative, got %d", c.Games)
	}
	if len(c.Players) == 0 {
		return fmt.Errorf("at least one player is required")
	}
	for i, name := range c.Players {
		if !players.Valid(name) {
			return fmt.Errorf("player %d: unknown strategy %q (valid: %s)", i, name, strings.Join(players.Names, ", "))
		}
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %s)", c.Logging.Format, strings.Join(logging.Formats, ", "))
	}
	if c.Bridge.Addr != "" && c.Bridge.Interval <= 0 {
		return fmt.Errorf("bridge interval must be positive, got %v", c.Bridge.Interval)
	}
	return nil
}
