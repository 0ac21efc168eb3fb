package models

import (
	"net/http"
	"time"
)

// Concurrency constants for EnsureAll.
const (
	// DefaultConcurrency is the default number of artifacts provisioned in
	// parallel by EnsureAll. Each individual transfer is a single stream.
	DefaultConcurrency = 2

	// MaxConcurrency is the maximum allowed parallel artifact provisions.
	MaxConcurrency = 8
)

// EnsureOption configures an Ensure or EnsureAll operation.
type EnsureOption func(*ensureConfig)

// ensureConfig holds configuration for an ensure operation.
type ensureConfig struct {
	// force re-downloads even if the artifact is already present and valid.
	force bool

	// concurrency is the number of artifacts provisioned in parallel
	// (EnsureAll only).
	concurrency int

	// progressFn is called with progress updates during provisioning.
	progressFn func(FetchProgress)
}

// newEnsureConfig returns an ensureConfig with default values.
func newEnsureConfig() *ensureConfig {
	return &ensureConfig{
		concurrency: DefaultConcurrency,
	}
}

// WithForce forces re-download even if the artifact is already installed.
func WithForce() EnsureOption {
	return func(c *ensureConfig) {
		c.force = true
	}
}

// WithConcurrency sets the number of artifacts EnsureAll provisions in
// parallel. Values are clamped to the range [1, MaxConcurrency].
// Default is DefaultConcurrency (2). Ensure ignores this option.
func WithConcurrency(n int) EnsureOption {
	return func(c *ensureConfig) {
		if n < 1 {
			n = 1
		}
		if n > MaxConcurrency {
			n = MaxConcurrency
		}
		c.concurrency = n
	}
}

// WithProgress sets a callback for progress updates during provisioning.
// Under EnsureAll the callback is invoked from worker goroutines and must be
// thread-safe.
func WithProgress(fn func(FetchProgress)) EnsureOption {
	return func(c *ensureConfig) {
		c.progressFn = fn
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// managerConfig holds configuration for Manager construction.
type managerConfig struct {
	// httpClient is used for all artifact downloads.
	httpClient HTTPClient

	// logger receives diagnostic log messages.
	logger Logger
}

// newManagerConfig returns a managerConfig with default values.
func newManagerConfig() *managerConfig {
	return &managerConfig{
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient sets a custom HTTP client for artifact downloads.
// Useful for testing with mock servers or customizing timeouts.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) ManagerOption {
	return func(c *managerConfig) {
		c.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zerolog, logrus, and other structured loggers via
// small adapters.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// DefaultLockTimeout is the default timeout for acquiring file locks.
const DefaultLockTimeout = 30 * time.Second
