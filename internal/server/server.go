// internal/server/server.go
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/DropScrapexter/internal/importer"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/storage"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// Config holds HTTP server settings
type Config struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit" json:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `yaml:"rate_burst" json:"rate_burst"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// DefaultConfig returns the server defaults. The write timeout leaves room
// for a full batch at the default delay.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = int(c.RateLimit) + 1
	}
}

// Server exposes extraction, batch import and draft management over HTTP
type Server struct {
	config      Config
	router      *mux.Router
	general     importer.Extractor
	marketplace importer.Extractor
	batch       *importer.Importer
	narrowBatch *importer.Importer
	batchConfig importer.Config
	store       storage.Store
	health      *monitoring.HealthManager
	metrics     *monitoring.MetricsManager
	limiter     *utils.RateLimiter
	logger      utils.Logger
	now         func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithStore enables draft persistence and the /products routes
func WithStore(store storage.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics enables metrics recording and the /metrics route
func WithMetrics(metrics *monitoring.MetricsManager) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithHealth replaces the default health manager
func WithHealth(health *monitoring.HealthManager) Option {
	return func(s *Server) {
		if health != nil {
			s.health = health
		}
	}
}

// WithLogger sets the server logger
func WithLogger(logger utils.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatchConfig sets the batch import limits
func WithBatchConfig(cfg importer.Config) Option {
	return func(s *Server) {
		s.batchConfig = cfg
	}
}

// WithClock overrides the time source used for draft timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the server and its routes. general serves any site and
// marketplace serves the narrow marketplace pipeline.
func New(config Config, general, marketplace importer.Extractor, opts ...Option) *Server {
	config.applyDefaults()
	s := &Server{
		config:      config,
		general:     general,
		marketplace: marketplace,
		health:      monitoring.NewHealthManager(""),
		logger:      utils.NewNopLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "server")

	importerOpts := []importer.Option{
		importer.WithLogger(s.logger),
		importer.WithMetrics(s.metrics),
		importer.WithClock(s.now),
	}
	if s.store != nil {
		importerOpts = append(importerOpts, importer.WithStore(s.store))
	}
	s.batch = importer.New(general, s.batchConfig, importerOpts...)
	s.narrowBatch = importer.New(marketplace, s.batchConfig, importerOpts...)

	if config.RateLimit > 0 {
		s.limiter = utils.NewRateLimiter(config.RateLimit, config.RateBurst)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/products/extract", s.handleExtract(s.general)).Methods(http.MethodPost)
	api.HandleFunc("/products/extract/marketplace", s.handleExtract(s.marketplace)).Methods(http.MethodPost)
	api.HandleFunc("/products/batch", s.handleBatch).Methods(http.MethodPost)
	api.HandleFunc("/products", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}/status", s.handleUpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/products/{id}", s.handleDelete).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
