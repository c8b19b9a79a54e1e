package api

import (
	"time"
)

// Default client configuration values
const (
	DefaultGzip              = false
	DefaultRetryLimit        = 3
	DefaultConnectionTimeout = 30000 // milliseconds
	DefaultRetryDelay        = 0
	DefaultUserAgent         = "vk-cli"
)

// DefaultTimeout is DefaultConnectionTimeout as a duration.
const DefaultTimeout = DefaultConnectionTimeout * time.Millisecond

// Config holds the construction-time settings of a Client. It is a plain
// value; the Client copies it and never mutates the caller's copy.
type Config struct {
	BaseURL string
	Gzip    bool
	// RetryLimit is the maximum number of attempts per call, at least 1.
	RetryLimit int
	// ConnectionTimeout bounds a single attempt, in milliseconds.
	ConnectionTimeout int
	// RetryDelay is waited between attempts. Zero retries immediately.
	RetryDelay time.Duration
	// RequestsPerSecond enables a client-side limiter when positive.
	RequestsPerSecond float64
	// APIVersion is sent as the "v" parameter when set.
	APIVersion string
	// Lang is sent as the "lang" parameter when set.
	Lang      string
	UserAgent string
}

// DefaultConfig returns a Config populated from environment variables
// with fallback to default values.
//
// Environment variables:
//   - VK_API_BASE_URL: method endpoint prefix (default: "https://api.vk.com/method/")
//   - VK_GZIP: request gzip-compressed responses (default: false)
//   - VK_RETRY_LIMIT: attempts per call (default: 3)
//   - VK_TIMEOUT_MS: per-attempt timeout in milliseconds (default: 30000)
//   - VK_RETRY_DELAY: delay between attempts (default: "0s")
//   - VK_RPS: client-side requests per second, 0 disables (default: 0)
//   - VK_API_VERSION: value of the "v" parameter (default: unset)
//   - VK_LANG: value of the "lang" parameter (default: unset)
func DefaultConfig() Config {
	return Config{
		BaseURL:           getEnvString("VK_API_BASE_URL", DefaultBaseURL),
		Gzip:              getEnvBool("VK_GZIP", DefaultGzip),
		RetryLimit:        getEnvInt("VK_RETRY_LIMIT", DefaultRetryLimit),
		ConnectionTimeout: getEnvInt("VK_TIMEOUT_MS", DefaultConnectionTimeout),
		RetryDelay:        getEnvDuration("VK_RETRY_DELAY", DefaultRetryDelay),
		RequestsPerSecond: getEnvFloat("VK_RPS", 0),
		APIVersion:        getEnvString("VK_API_VERSION", ""),
		Lang:              getEnvString("VK_LANG", ""),
		UserAgent:         DefaultUserAgent,
	}
}

// Validate checks the configuration without touching the network.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return invalid("base URL", "must not be empty")
	}
	if c.RetryLimit < 1 {
		return invalid("retry limit", "must be at least 1, got %d", c.RetryLimit)
	}
	if c.ConnectionTimeout <= 0 {
		return invalid("connection timeout", "must be positive, got %d", c.ConnectionTimeout)
	}
	if c.RetryDelay < 0 {
		return invalid("retry delay", "must not be negative, got %s", c.RetryDelay)
	}
	if c.RequestsPerSecond < 0 {
		return invalid("requests per second", "must not be negative, got %g", c.RequestsPerSecond)
	}
	return nil
}
