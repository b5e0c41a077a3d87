package edgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// userAgentEnv names the environment variable NewFromEnv reads.
const userAgentEnv = "EDGO_USER_AGENT"

// Client issues rate-limited, retried, validated HTTPS GET requests against
// the SEC API. A single instance is safe for concurrent use: the token
// bucket is the only shared mutable state and it is internally synchronized.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	limiter    *RateLimiter
	retry      RetryPolicy
	validator  *Validator
	logger     *zap.Logger
	metrics    *MetricsCollector
}

// fetchResult is one successfully classified and decoded response.
type fetchResult struct {
	body        []byte
	header      http.Header
	status      int
	notModified bool
}

// New constructs a Client from an immutable configuration. The configuration
// is fully validated here; an invalid one is an error, not a degraded client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var limiter *RateLimiter
	if cfg.Unlimited {
		limiter = NewUnlimitedRateLimiter()
	} else {
		var err error
		limiter, err = NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
		if err != nil {
			return nil, err
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Decompression is handled by decodeBody so Content-Encoding stays
		// observable; the transport must not eat it.
		httpClient = &http.Client{
			Transport: &http.Transport{DisableCompression: true},
		}
	}

	return &Client{
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		timeout:    cfg.Timeout,
		limiter:    limiter,
		retry:      cfg.retryPolicy(),
		validator:  NewValidator(cfg.AllowedHosts),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// NewFromEnv constructs a default-configured client with the User-Agent
// taken from the EDGO_USER_AGENT environment variable.
func NewFromEnv() (*Client, error) {
	ua := os.Getenv(userAgentEnv)
	if err := ValidateUserAgent(ua); err != nil {
		return nil, validationError(userAgentEnv+" must hold an identifying User-Agent with a contact email", err)
	}
	return New(DefaultConfig(ua))
}

// FetchBytes performs a validated, rate-limited, retried GET and returns the
// decompressed response body.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := c.fetch(ctx, rawURL, "")
	if err != nil {
		return nil, err
	}
	return res.body, nil
}

// FetchText is FetchBytes plus UTF-8 validation. Binary payloads should use
// FetchBytes; invalid UTF-8 here is a fatal decode error.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.FetchBytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(body) {
		return "", decodeError("response body is not valid UTF-8", nil)
	}
	return string(body), nil
}

// GetJSON fetches rawURL and unmarshals the response into out. A malformed
// payload is a fatal decode error, never retried.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	text, err := c.FetchText(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return decodeError("malformed JSON response", err)
	}
	return nil
}

// DownloadText fetches rawURL and writes the UTF-8 validated body to path.
func (c *Client) DownloadText(ctx context.Context, rawURL, path string) error {
	text, err := c.FetchText(ctx, rawURL)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// DownloadBytes fetches rawURL and writes the raw decompressed body to path.
func (c *Client) DownloadBytes(ctx context.Context, rawURL, path string) error {
	body, err := c.FetchBytes(ctx, rawURL)
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

// fetch runs the full pipeline: validate, acquire a token, then retry
// attempts until success or a terminal error. When etag is non-empty the
// request is conditional and a 304 comes back as a notModified result.
func (c *Client) fetch(ctx context.Context, rawURL, etag string) (*fetchResult, error) {
	if err := c.validator.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	endpoint := endpointLabel(rawURL)
	c.metrics.RecordRequestStart(http.MethodGet, endpoint)
	defer c.metrics.RecordRequestEnd(http.MethodGet, endpoint)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ClientError{Kind: ErrorKindNetwork, Message: "cancelled while waiting for rate limiter", URL: rawURL, Cause: err}
	}
	c.metrics.RecordRateLimiterTokens("default", c.limiter.Tokens())

	attempts := 0
	res, err := retryDo(ctx, c.retry, c.logger, func(ctx context.Context) (*fetchResult, error) {
		attempts++
		if attempts > 1 {
			c.metrics.RecordRetry(http.MethodGet, endpoint)
		}
		return c.attempt(ctx, rawURL, etag, endpoint)
	})
	if err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			c.metrics.RecordError(clientErr.Kind, endpoint)
		}
		return nil, err
	}
	return res, nil
}

// attempt executes a single request. A fresh request descriptor is built on
// every call so retries never reuse a consumed body or stale context.
func (c *Client) attempt(ctx context.Context, rawURL, etag, endpoint string) (*fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, validationError("building request failed", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, rawURL)
	}

	c.metrics.RecordRequest(http.MethodGet, endpoint, resp.StatusCode, time.Since(start))

	if etag != "" && resp.StatusCode == http.StatusNotModified {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return &fetchResult{header: resp.Header, status: resp.StatusCode, notModified: true}, nil
	}

	if err := classifyStatus(resp.StatusCode, rawURL); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, err
	}

	decoded, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(decoded)
	closeErr := decoded.Close()
	if err != nil {
		return nil, decodeError("reading response body failed", err)
	}
	if closeErr != nil {
		return nil, decodeError("closing response body failed", closeErr)
	}

	return &fetchResult{body: body, header: resp.Header, status: resp.StatusCode}, nil
}

// classifyTransportError separates timeouts from other transport failures;
// both are retryable.
func classifyTransportError(err error, rawURL string) *ClientError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Kind: ErrorKindTimeout, Message: "request timed out", URL: rawURL, Cause: err}
	}
	return &ClientError{Kind: ErrorKindNetwork, Message: "request failed", URL: rawURL, Cause: err}
}

// endpointLabel reduces a URL to host+path for metric labels.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	if u.Path == "" || u.Path == "/" {
		return fmt.Sprintf("%s/", u.Host)
	}
	return u.Host + u.Path
}
