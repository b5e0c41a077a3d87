package edgo

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config is the complete configuration surface of a Client. It is consumed
// once by New; mutating it afterwards has no effect on a constructed client.
type Config struct {
	// UserAgent identifies the application and its contact email, e.g.
	// "MyApp admin@example.com". Required by the SEC for automated access.
	UserAgent string

	// Timeout bounds each individual request attempt, not the whole retry
	// sequence. A timed-out attempt is classified as retryable.
	Timeout time.Duration

	// RequestsPerSecond is the sustained token refill rate. Burst is the
	// bucket capacity. Unlimited disables rate limiting entirely; only use
	// it when external throttling is known to be safe (e.g. replaying from
	// a local cache).
	RequestsPerSecond float64
	Burst             int
	Unlimited         bool

	// Retry parameters. RetryDisabled caps the client at a single attempt.
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	Jitter        float64
	RetryDisabled bool

	// AllowedHosts is the domain allowlist checked before any network I/O.
	// Empty means the default SEC host set. Entries match exactly or as a
	// parent-domain suffix ("sec.gov" admits "data.sec.gov").
	AllowedHosts []string

	// HTTPClient overrides the underlying transport, mainly for tests.
	// Its transport should keep automatic decompression disabled; New
	// installs a suitable default when nil.
	HTTPClient *http.Client

	// Logger receives retry and cache diagnostics. Nil means no logging.
	Logger *zap.Logger

	// Metrics receives Prometheus instrumentation. Nil disables collection.
	Metrics *MetricsCollector
}

// DefaultConfig returns the SEC-compliant defaults: 10 requests per second
// with a burst of 10, three attempts with 500ms→30s exponential backoff,
// 30 second per-attempt timeout, and the official sec.gov host allowlist.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:         userAgent,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		Multiplier:        2.0,
		Jitter:            0.1,
	}
}

// validate checks the configuration and reports every problem found, not
// just the first.
func (c Config) validate() error {
	var problems []string

	if err := ValidateUserAgent(c.UserAgent); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Timeout <= 0 {
		problems = append(problems, "Timeout must be positive")
	}

	if !c.Unlimited {
		if c.RequestsPerSecond <= 0 {
			problems = append(problems, "RequestsPerSecond must be positive unless Unlimited is set")
		}
		if c.Burst <= 0 {
			problems = append(problems, "Burst must be positive unless Unlimited is set")
		}
	}

	if !c.RetryDisabled {
		if c.MaxAttempts < 1 {
			problems = append(problems, "MaxAttempts must be at least 1")
		}
		if c.InitialDelay <= 0 {
			problems = append(problems, "InitialDelay must be positive")
		}
		if c.MaxDelay < c.InitialDelay {
			problems = append(problems, "MaxDelay must be greater than or equal to InitialDelay")
		}
		if c.Multiplier < 1.0 {
			problems = append(problems, "Multiplier must be at least 1.0")
		}
		if c.Jitter < 0 || c.Jitter > 1 {
			problems = append(problems, "Jitter must be between 0 and 1")
		}
	}

	for _, host := range c.AllowedHosts {
		if strings.TrimSpace(host) == "" {
			problems = append(problems, "AllowedHosts entries must not be empty")
			break
		}
	}

	if len(problems) > 0 {
		return validationError("configuration invalid", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// retryPolicy derives the immutable retry schedule from the configuration.
func (c Config) retryPolicy() RetryPolicy {
	if c.RetryDisabled {
		return RetryPolicy{MaxAttempts: 1}
	}
	return RetryPolicy{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Multiplier:   c.Multiplier,
		Jitter:       c.Jitter,
	}
}
