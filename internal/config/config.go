// internal/config/config.go
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/valpere/DropScrapexter/internal/fetch"
	"github.com/valpere/DropScrapexter/internal/importer"
	"github.com/valpere/DropScrapexter/internal/output"
	"github.com/valpere/DropScrapexter/internal/server"
)

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. ${VAR} references are
// expanded from the environment before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expandedData := expandEnvironmentVariables(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	data, err := marshal(config)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	data, err := marshal(config)
	if err != nil {
		return err
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	return nil
}

func marshal(config *Config) ([]byte, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return data, nil
}

// GenerateTemplate returns the defaults plus a local SQLite store and
// metrics enabled, as written by the template command.
func GenerateTemplate() *Config {
	config := Default()
	config.Storage.Driver = "sqlite3"
	config.Storage.DSN = "./data/drafts.db"
	config.Export.File = "drafts.json"
	config.Metrics.Enabled = true
	return config
}

// expandEnvironmentVariables substitutes environment variables in the configuration
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Version == "" {
		config.Version = CurrentVersion
	}

	fetchDefaults := fetch.DefaultConfig()
	if len(config.Fetch.Endpoints) == 0 {
		config.Fetch.Endpoints = fetchDefaults.Endpoints
	}
	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = fetchDefaults.Timeout
	}
	if config.Fetch.MinContentLength == 0 {
		config.Fetch.MinContentLength = fetchDefaults.MinContentLength
	}
	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = fetchDefaults.RateLimit
	}
	if config.Fetch.RateBurst == 0 {
		config.Fetch.RateBurst = fetchDefaults.RateBurst
	}
	if config.Fetch.Breaker.MaxFailures == 0 {
		config.Fetch.Breaker = fetchDefaults.Breaker
	}

	if config.Batch.MaxURLs == 0 {
		config.Batch.MaxURLs = importer.DefaultMaxURLs
	}
	if config.Batch.Delay == 0 {
		config.Batch.Delay = importer.DefaultDelay
	}

	if config.Export.Format == "" {
		if f, ok := output.FormatFromPath(config.Export.File); ok {
			config.Export.Format = f
		} else {
			config.Export.Format = output.FormatJSON
		}
	}

	serverDefaults := server.DefaultConfig()
	if config.Server.Addr == "" {
		config.Server.Addr = serverDefaults.Addr
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = serverDefaults.ReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = serverDefaults.WriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = serverDefaults.ShutdownTimeout
	}
	if config.Server.MaxBodyBytes == 0 {
		config.Server.MaxBodyBytes = serverDefaults.MaxBodyBytes
	}

	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = "dropscrapexter"
	}
	if config.Metrics.Subsystem == "" {
		config.Metrics.Subsystem = "extractor"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
	if config.Log.Output == "" {
		config.Log.Output = "stderr"
	}
}
