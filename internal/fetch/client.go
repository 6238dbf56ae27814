// internal/fetch/client.go
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/monitoring"
	"github.com/valpere/DropScrapexter/internal/utils"
)

// URLPlaceholder marks where the escaped target URL goes in an endpoint template
const URLPlaceholder = "{url}"

// FailureMessage is reported when every endpoint failed
const FailureMessage = "Could not fetch the product page. The site may be blocking automated access."

const maxBodyBytes = 10 << 20

// DefaultEndpoints are the public proxy endpoints tried in order
var DefaultEndpoints = []string{
	"https://api.allorigins.win/raw?url={url}",
	"https://corsproxy.io/?{url}",
	"https://api.codetabs.com/v1/proxy?quest={url}",
}

// ClientConfig defines configuration options for the retrieval client
type ClientConfig struct {
	Endpoints        []string                    `yaml:"endpoints" json:"endpoints"`
	Timeout          time.Duration               `yaml:"timeout" json:"timeout"`
	MinContentLength int                         `yaml:"min_content_length" json:"min_content_length"`
	UserAgents       []string                    `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	Headers          map[string]string           `yaml:"headers,omitempty" json:"headers,omitempty"`
	RateLimit        float64                     `yaml:"rate_limit" json:"rate_limit"` // requests per second
	RateBurst        int                         `yaml:"rate_burst" json:"rate_burst"`
	Breaker          errors.CircuitBreakerConfig `yaml:"breaker" json:"breaker"`
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Endpoints:        append([]string(nil), DefaultEndpoints...),
		Timeout:          15 * time.Second,
		MinContentLength: 500,
		RateLimit:        2,
		RateBurst:        3,
		Breaker: errors.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: time.Minute,
		},
	}
}

// applyDefaults fills zero values from DefaultConfig
func (c *ClientConfig) applyDefaults() {
	def := DefaultConfig()
	if len(c.Endpoints) == 0 {
		c.Endpoints = def.Endpoints
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = def.MinContentLength
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = getDefaultUserAgents()
	}
	if c.RateLimit <= 0 {
		c.RateLimit = def.RateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = def.RateBurst
	}
}

// Validate checks that every endpoint template is usable
func (c ClientConfig) Validate() error {
	for i, ep := range c.Endpoints {
		if !strings.Contains(ep, URLPlaceholder) {
			return fmt.Errorf("endpoint %d: template must contain %s", i, URLPlaceholder)
		}
		if !utils.IsValidURL(strings.ReplaceAll(ep, URLPlaceholder, "x")) {
			return fmt.Errorf("endpoint %d: invalid URL template %q", i, ep)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.MinContentLength < 0 {
		return fmt.Errorf("min_content_length cannot be negative")
	}
	return nil
}

// StatusError is a non-2xx answer from an endpoint
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint %s: HTTP %d", e.Endpoint, e.StatusCode)
}

// ErrContentTooShort is returned for bodies under the minimum content length
var ErrContentTooShort = stderrors.New("content too short")

// ErrBreakerOpen is recorded for endpoints skipped by their circuit breaker
var ErrBreakerOpen = stderrors.New("circuit breaker open")

// Client retrieves documents through an ordered list of proxy endpoints.
// It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *utils.RateLimiter
	breakers   *errors.Service
	logger     utils.Logger
	metrics    *monitoring.MetricsManager

	uaMutex   sync.Mutex
	currentUA int
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger utils.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables recording of attempts per endpoint
func WithMetrics(metrics *monitoring.MetricsManager) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithErrorService shares circuit breakers with other clients
func WithErrorService(service *errors.Service) Option {
	return func(c *Client) {
		if service != nil {
			c.breakers = service
		}
	}
}

// NewClient creates a retrieval client, applying defaults for zero fields
func NewClient(config ClientConfig, opts ...Option) *Client {
	config.applyDefaults()

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  utils.NewRateLimiter(config.RateLimit, config.RateBurst),
		breakers: errors.NewService().WithBreakerConfig(config.Breaker),
		logger:   utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "fetch")
	return c
}

// WithMinContentLength returns a copy of the client that requires longer
// bodies. The copy shares the rate limiter and circuit breakers.
func (c *Client) WithMinContentLength(n int) *Client {
	cfg := c.config
	if n > 0 {
		cfg.MinContentLength = n
	}
	return &Client{
		config:     cfg,
		httpClient: c.httpClient,
		limiter:    c.limiter,
		breakers:   c.breakers,
		logger:     c.logger,
		metrics:    c.metrics,
	}
}

// Config returns the effective configuration
func (c *Client) Config() ClientConfig {
	return c.config
}

// Breakers returns the error service holding the per-endpoint breakers
func (c *Client) Breakers() *errors.Service {
	return c.breakers
}

// Fetch tries each endpoint in order and returns the first usable body.
// When all endpoints fail it returns a FetchFailed ExtractionError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	var lastErr error

	for _, template := range c.config.Endpoints {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		name := endpointName(template)
		breaker := c.breakers.Breaker(name)
		if !breaker.CanExecute() {
			c.logger.WithField("endpoint", name).Debug("skipping endpoint with open circuit")
			lastErr = fmt.Errorf("endpoint %s: %w", name, ErrBreakerOpen)
			continue
		}

		start := time.Now()
		body, err := c.attempt(ctx, template, rawURL)
		if err != nil {
			c.metrics.RecordFetchAttempt(name, monitoring.OutcomeError, time.Since(start))
			// cancellation by the caller says nothing about the endpoint
			if ctx.Err() == nil {
				breaker.RecordFailure()
			}
			c.logger.WithFields(map[string]interface{}{
				"endpoint": name,
				"url":      rawURL,
				"error":    err.Error(),
			}).Debug("fetch attempt failed")
			lastErr = err
			continue
		}

		breaker.RecordSuccess()
		c.metrics.RecordFetchAttempt(name, monitoring.OutcomeSuccess, time.Since(start))
		return body, nil
	}

	return "", &errors.ExtractionError{
		Kind:    errors.KindFetchFailed,
		Stage:   errors.StageFetching,
		URL:     rawURL,
		Message: FailureMessage,
		Cause:   lastErr,
	}
}

// attempt performs a single bounded request against one endpoint
func (c *Client) attempt(ctx context.Context, template, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	target := ExpandEndpoint(template, rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setRequestHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Endpoint: endpointName(template), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) <= c.config.MinContentLength {
		return "", fmt.Errorf("%w: %d bytes", ErrContentTooShort, len(body))
	}
	return string(body), nil
}

// setRequestHeaders makes requests look like a browser navigation
func (c *Client) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
}

// nextUserAgent returns the next user agent in rotation
func (c *Client) nextUserAgent() string {
	c.uaMutex.Lock()
	defer c.uaMutex.Unlock()

	if len(c.config.UserAgents) == 0 {
		return "DropScrapexter/1.0"
	}
	ua := c.config.UserAgents[c.currentUA%len(c.config.UserAgents)]
	c.currentUA = (c.currentUA + 1) % len(c.config.UserAgents)
	return ua
}

// ExpandEndpoint substitutes the query-escaped target into a template
func ExpandEndpoint(template, rawURL string) string {
	return strings.ReplaceAll(template, URLPlaceholder, url.QueryEscape(rawURL))
}

// endpointName identifies an endpoint by host and path, for breakers and metrics
func endpointName(template string) string {
	u, err := url.Parse(strings.ReplaceAll(template, URLPlaceholder, ""))
	if err != nil || u.Host == "" {
		return template
	}
	return u.Host + u.Path
}

// getDefaultUserAgents returns a set of realistic user agent strings
func getDefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}
