// Package config provides configuration loading and structs for the okikae tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Batch   BatchConfig   `yaml:"batch"`
	Replace ReplaceConfig `yaml:"replace"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxUploadBytes bounds one multipart replace request.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// StorageConfig holds the run-history database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// BatchConfig holds batch processing settings.
type BatchConfig struct {
	// Workers is the number of files processed concurrently; 1 = sequential.
	Workers int `yaml:"workers"`
}

// ReplaceConfig holds default find/replace settings, used by watch mode and
// as CLI defaults.
type ReplaceConfig struct {
	Find          string `yaml:"find"`
	Replace       string `yaml:"replace"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

// WatchConfig holds hot-folder settings: files appearing in InputDir are
// processed with the configured request and written to OutputDir.
type WatchConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Watch.InputDir != "" {
		cfg.Watch.InputDir = expandPath(cfg.Watch.InputDir, configDir)
	}
	if cfg.Watch.OutputDir != "" {
		cfg.Watch.OutputDir = expandPath(cfg.Watch.OutputDir, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
