// internal/config/types.go
package config

import (
	"github.com/valpere/DropScrapexter/internal/fetch"
	"github.com/valpere/DropScrapexter/internal/importer"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/output"
	"github.com/valpere/DropScrapexter/internal/server"
	"github.com/valpere/DropScrapexter/internal/storage"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// CurrentVersion is the configuration format version written by templates
const CurrentVersion = "1"

// Config is the root configuration of the importer
type Config struct {
	// Version of the configuration format
	Version string `yaml:"version" json:"version"`

	// Fetch configures the proxy retrieval client
	Fetch fetch.ClientConfig `yaml:"fetch" json:"fetch"`

	// Batch limits bulk imports
	Batch importer.Config `yaml:"batch" json:"batch"`

	// Storage selects where drafts are persisted. Empty driver disables it.
	Storage storage.Config `yaml:"storage" json:"storage"`

	// Export sets the default format and file for the export command
	Export output.Config `yaml:"export" json:"export"`

	Server  server.Config `yaml:"server" json:"server"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Log     utils.LogConfig `yaml:"log" json:"log"`
}

// MetricsConfig enables Prometheus metrics
type MetricsConfig struct {
	Enabled                  bool `yaml:"enabled" json:"enabled"`
	monitoring.MetricsConfig `yaml:",inline"`
}
