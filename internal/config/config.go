// Package config reads and writes the command line client's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

const (
	// TokenEnv overrides the token of the configuration file.
	TokenEnv = "LOTUS_TOKEN"

	// LogLevelEnv overrides the log level of the configuration file.
	LogLevelEnv = "LOTUS_LOG_LEVEL"

	DefaultAddress = "ws://localhost:8080/v1/lotus/imap"
)

// Config is the configuration of the lotus command.
type Config struct {
	Address  string      `toml:"address"`
	Token    string      `toml:"token"`
	LogLevel string      `toml:"log_level"`
	CacheTTL Duration    `toml:"cache_ttl"`
	Fetch    FetchConfig `toml:"fetch"`
}

// FetchConfig is the message window asked for when a folder is fetched.
type FetchConfig struct {
	Start int `toml:"start"`
	End   int `toml:"end"`
	Limit int `toml:"limit"`
}

// Duration is a time.Duration written as a string such as "2m0s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}

	*d = Duration(dur)

	return nil
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Address:  DefaultAddress,
		LogLevel: logrus.InfoLevel.String(),
		CacheTTL: Duration(2 * time.Minute),
		Fetch: FetchConfig{
			Start: 1,
			End:   100,
			Limit: 100,
		},
	}
}

// Validate checks that the configuration can be used to connect.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is empty")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", time.Duration(c.CacheTTL))
	}

	if c.Fetch.Start < 1 || c.Fetch.End < c.Fetch.Start || c.Fetch.Limit < 1 {
		return fmt.Errorf("invalid fetch window %v-%v (limit %v)", c.Fetch.Start, c.Fetch.End, c.Fetch.Limit)
	}

	return nil
}

// ApplyEnv overrides the configuration with the environment.
func (c *Config) ApplyEnv() {
	if token, ok := os.LookupEnv(TokenEnv); ok {
		c.Token = token
	}

	if level, ok := os.LookupEnv(LogLevelEnv); ok {
		c.LogLevel = level
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys missing from the input keep their default value.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Default()

	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	for _, key := range md.Undecoded() {
		logrus.WithField("key", key.String()).Warn("Ignoring unknown config key")
	}

	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// DefaultPath returns where the configuration lives unless told otherwise.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	return filepath.Join(dir, "lotus", "config.toml"), nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}

	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file holds the token.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}

	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Init writes a new config file at the specified path. It fails if the file already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	return nil
}
