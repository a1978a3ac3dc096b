// Package config manages server configuration stored in server_config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the configuration file name inside the data directory.
const FileName = "server_config.json"

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// Workers bounds concurrently handled connections. 0 means one per CPU.
	Workers int `json:"workers"`

	// RatePerMin limits connections per remote host per minute.
	// 0 means unlimited.
	RatePerMin int `json:"rate_per_min"`

	// RateBurst is the number of connections a host may open at once before
	// RatePerMin applies.
	RateBurst int `json:"rate_burst"`

	// History commits every mutation to a git repository in the data
	// directory.
	History bool `json:"history"`

	// HistoryAuthor is the commit author for history, "Name <email>".
	HistoryAuthor string `json:"history_author"`
}

// Default returns the default configuration.
func Default() ServerConfig {
	return ServerConfig{
		RateBurst:     10,
		HistoryAuthor: "jsondb <jsondb@localhost>",
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers must be non-negative")
	}
	if c.RatePerMin < 0 {
		return errors.New("rate_per_min must be non-negative")
	}
	if c.RateBurst < 0 {
		return errors.New("rate_burst must be non-negative")
	}
	if c.RatePerMin > 0 && c.RateBurst == 0 {
		return errors.New("rate_burst must be positive when rate_per_min is set")
	}
	if _, _, err := c.Author(); err != nil {
		return err
	}
	return nil
}

// Author splits HistoryAuthor into name and email. An empty HistoryAuthor
// yields empty strings.
func (c *ServerConfig) Author() (name, email string, err error) {
	if c.HistoryAuthor == "" {
		return "", "", nil
	}
	return parseAuthor(c.HistoryAuthor)
}

// Load loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist. Members missing from
// the file keep their default.
func Load(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, FileName)
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}
