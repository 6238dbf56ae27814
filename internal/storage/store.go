// internal/storage/store.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/product"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongodb"
)

// DefaultTable is used for the drafts table or collection when none is set
const DefaultTable = "product_drafts"

// MaxIdentifierLength bounds table and collection names for every driver
const MaxIdentifierLength = 63

// ErrNotFound is returned when no draft has the requested ID
var ErrNotFound = errors.New("draft not found")

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var reservedWords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true, "drop": true,
	"create": true, "alter": true, "table": true, "index": true, "from": true,
	"where": true, "order": true, "group": true, "user": true, "key": true,
}

// Store persists product drafts
type Store interface {
	Save(ctx context.Context, draft *product.Draft) error
	Get(ctx context.Context, id string) (*product.Draft, error)
	List(ctx context.Context, opts ListOptions) ([]*product.Draft, error)
	UpdateStatus(ctx context.Context, id string, status product.Status, now time.Time) (*product.Draft, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// ListOptions filters and pages List results. Drafts are returned newest
// first.
type ListOptions struct {
	Status product.Status
	Limit  int
	Offset int
}

// Config selects and configures the storage backend
type Config struct {
	Driver   string        `yaml:"driver" json:"driver"`
	DSN      string        `yaml:"dsn" json:"dsn"`
	Database string        `yaml:"database,omitempty" json:"database,omitempty"`
	Table    string        `yaml:"table,omitempty" json:"table,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Enabled reports whether a backend is configured
func (c Config) Enabled() bool {
	return c.Driver != ""
}

// Validate checks driver, DSN and identifiers
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	switch c.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL, DriverMongo:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("storage dsn is required for driver %s", c.Driver)
	}
	if c.Driver == DriverMongo && c.Database == "" {
		return fmt.Errorf("storage database is required for driver %s", c.Driver)
	}
	if c.Table != "" {
		if err := ValidateIdentifier(c.Table); err != nil {
			return fmt.Errorf("storage table: %w", err)
		}
	}
	return nil
}

// ValidateIdentifier checks that a table or collection name is safe to
// interpolate into statements.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("identifier too long (max %d characters): %s", MaxIdentifierLength, identifier)
	}
	if !identifierRegex.MatchString(identifier) {
		return fmt.Errorf("identifier contains invalid characters: %s", identifier)
	}
	if reservedWords[strings.ToLower(identifier)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", identifier)
	}
	return nil
}

// Open connects to the configured backend and prepares its schema
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	switch cfg.Driver {
	case DriverMongo:
		return OpenMongo(ctx, cfg)
	case "":
		return nil, fmt.Errorf("no storage driver configured")
	default:
		return OpenSQL(ctx, cfg)
	}
}

// instrumented records every operation of the wrapped store
type instrumented struct {
	Store
	metrics *monitoring.MetricsManager
}

// Instrument wraps store so each operation is counted in metrics. A nil
// metrics manager returns store unchanged.
func Instrument(store Store, metrics *monitoring.MetricsManager) Store {
	if metrics == nil {
		return store
	}
	return &instrumented{Store: store, metrics: metrics}
}

func (s *instrumented) Save(ctx context.Context, draft *product.Draft) error {
	err := s.Store.Save(ctx, draft)
	s.metrics.RecordStorageOp("save", err)
	return err
}

func (s *instrumented) Get(ctx context.Context, id string) (*product.Draft, error) {
	d, err := s.Store.Get(ctx, id)
	s.metrics.RecordStorageOp("get", err)
	return d, err
}

func (s *instrumented) List(ctx context.Context, opts ListOptions) ([]*product.Draft, error) {
	list, err := s.Store.List(ctx, opts)
	s.metrics.RecordStorageOp("list", err)
	return list, err
}

func (s *instrumented) UpdateStatus(ctx context.Context, id string, status product.Status, now time.Time) (*product.Draft, error) {
	d, err := s.Store.UpdateStatus(ctx, id, status, now)
	s.metrics.RecordStorageOp("update_status", err)
	return d, err
}

func (s *instrumented) Delete(ctx context.Context, id string) error {
	err := s.Store.Delete(ctx, id)
	s.metrics.RecordStorageOp("delete", err)
	return err
}
