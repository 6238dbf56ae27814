// internal/config/validation.go - validation with per-field messages
package config

import (
	"fmt"
	"strings"

	"github.com/valpere/DropScrapexter/internal/storage"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Value == "" {
		return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	}
	return fmt.Sprintf("%s: %s (got %q)", ve.Field, ve.Message, ve.Value)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) addError(field, value, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if result.Valid {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, e := range result.Errors {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return fmt.Errorf("%s", b.String())
}

// ValidateDetailed returns every error and warning for the CLI validate
// command.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateFetch(result)
	c.validateBatch(result)
	c.validateStorage(result)
	c.validateExport(result)
	c.validateServer(result)
	c.validateLog(result)
	return result
}

func (c *Config) validateFetch(result *ValidationResult) {
	if len(c.Fetch.Endpoints) == 0 {
		result.addError("fetch.endpoints", "", "at least one proxy endpoint is required")
	}
	if err := c.Fetch.Validate(); err != nil {
		result.addError("fetch", "", err.Error())
	}
	if c.Fetch.RateLimit < 0 {
		result.addError("fetch.rate_limit", fmt.Sprint(c.Fetch.RateLimit), "must not be negative")
	}
	if c.Fetch.MinContentLength > 0 && c.Fetch.MinContentLength < 100 {
		result.Warnings = append(result.Warnings,
			"fetch.min_content_length below 100 may accept proxy error pages as documents")
	}
}

func (c *Config) validateBatch(result *ValidationResult) {
	if c.Batch.MaxURLs < 0 {
		result.addError("batch.max_urls", fmt.Sprint(c.Batch.MaxURLs), "must not be negative")
	}
	if c.Batch.Delay < 0 {
		result.Warnings = append(result.Warnings, "batch.delay is negative: batch imports are not throttled")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	if err := c.Storage.Validate(); err != nil {
		result.addError("storage", c.Storage.Driver, err.Error())
	}
	if c.Storage.Driver == storage.DriverSQLite && c.Storage.DSN == ":memory:" {
		result.Warnings = append(result.Warnings, "storage.dsn :memory: loses drafts on exit")
	}
}

func (c *Config) validateExport(result *ValidationResult) {
	export := c.Export
	if err := export.Validate(); err != nil {
		result.addError("export.format", string(c.Export.Format), err.Error())
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.Addr == "" {
		result.addError("server.addr", "", "listen address is required")
	}
	if c.Server.RateLimit < 0 {
		result.addError("server.rate_limit", fmt.Sprint(c.Server.RateLimit), "must not be negative")
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		result.addError("log.level", c.Log.Level, "must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		result.addError("log.format", c.Log.Format, "must be console or json")
	}
}
