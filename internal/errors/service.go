// internal/errors/service.go - CLI error presentation and circuit breakers
package errors

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service turns extraction failures into CLI output and owns the circuit
// breakers guarding retrieval endpoints.
type Service struct {
	messageHandler  *MessageHandler
	breakerConfig   CircuitBreakerConfig
	circuitBreakers map[string]*CircuitBreaker
	mu              sync.RWMutex
}

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns a readable state name
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements circuit breaker pattern for error recovery
type CircuitBreaker struct {
	name            string
	maxFailures     int
	resetTimeout    time.Duration
	state           CircuitBreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	now             func() time.Time
	mu              sync.RWMutex
}

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// NewService creates a new error service
func NewService() *Service {
	return &Service{
		messageHandler: &MessageHandler{showTechnical: false},
		breakerConfig: CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: time.Minute,
		},
		circuitBreakers: make(map[string]*CircuitBreaker),
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// WithBreakerConfig sets the configuration used for breakers created later
func (s *Service) WithBreakerConfig(config CircuitBreakerConfig) *Service {
	if config.MaxFailures > 0 {
		s.breakerConfig.MaxFailures = config.MaxFailures
	}
	if config.ResetTimeout > 0 {
		s.breakerConfig.ResetTimeout = config.ResetTimeout
	}
	return s
}

// Breaker returns the circuit breaker for name, creating it on first use
func (s *Service) Breaker(name string) *CircuitBreaker {
	s.mu.RLock()
	if cb, exists := s.circuitBreakers[name]; exists {
		s.mu.RUnlock()
		return cb
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, exists := s.circuitBreakers[name]; exists {
		return cb
	}
	cb := NewCircuitBreaker(name, s.breakerConfig)
	s.circuitBreakers[name] = cb
	return cb
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	message = UserMessage(err)

	switch KindOf(err) {
	case KindInvalidURL:
		return "Invalid URL", message, []string{
			"Include the scheme, for example https://",
			"Copy the address directly from the product page",
		}
	case KindUnsupportedSource:
		return "Unsupported Marketplace", message, []string{
			"Use a product page from alibaba.com, aliexpress.com or 1688.com",
			"Run without --narrow to import from any site",
		}
	case KindFetchFailed:
		return "Page Not Retrieved", message, []string{
			"The site may be blocking automated access",
			"Try again later or add more fetch endpoints to the configuration",
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "yaml") || strings.Contains(errStr, "config") {
		return "Configuration Error",
			"The configuration file could not be loaded.",
			[]string{
				"Check YAML indentation (use spaces, not tabs)",
				"Run 'dropscrapexter validate <config.yaml>'",
			}
	}

	return "Unexpected Error", message, []string{
		"Try running the command again",
		"Run with --verbose for technical details",
	}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case KindInvalidURL, KindUnsupportedSource:
		return 6 // Validation error
	case KindFetchFailed:
		return 3 // Network error
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return 2
	case strings.Contains(errStr, "output") || strings.Contains(errStr, "write"):
		return 5
	default:
		return 1
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	output := fmt.Sprintf("✗ %s\n%s\n", title, message)

	if s.messageHandler.showTechnical {
		output += fmt.Sprintf("\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		output += "\nSuggestions:\n"
		for _, suggestion := range suggestions {
			output += fmt.Sprintf("  • %s\n", suggestion)
		}
	}

	return output
}

// GetCircuitBreakerStats returns statistics for all circuit breakers
func (s *Service) GetCircuitBreakerStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	for name, cb := range s.circuitBreakers {
		stats[name] = cb.GetStats()
	}
	return stats
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = time.Minute
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  config.MaxFailures,
		resetTimeout: config.ResetTimeout,
		state:        CircuitClosed,
		now:          time.Now,
	}
}

// CanExecute checks if circuit breaker allows execution
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records successful execution
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records failed execution
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	// a failed probe while half-open reopens immediately
	if cb.failures >= cb.maxFailures || cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		cb.nextAttemptTime = cb.now().Add(cb.resetTimeout)
	}
}

// GetState returns current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return map[string]interface{}{
		"name":              cb.name,
		"state":             cb.state.String(),
		"failures":          cb.failures,
		"max_failures":      cb.maxFailures,
		"last_failure_time": cb.lastFailureTime,
		"next_attempt_time": cb.nextAttemptTime,
		"reset_timeout":     cb.resetTimeout,
	}
}
