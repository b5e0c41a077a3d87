package edgo

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAllowedHosts is the official SEC host set. Requests to anything
// else are rejected before they consume rate limiter budget.
var DefaultAllowedHosts = []string{
	"sec.gov",
	"www.sec.gov",
	"data.sec.gov",
	"efts.sec.gov",
}

// Validator enforces the transport and domain allowlist. It is a security
// boundary: restricting requests to known public API hosts also prevents
// forging requests at internal network addresses.
type Validator struct {
	hosts []string
}

// NewValidator builds a validator for the given host allowlist. Entries
// match the request host exactly or as a parent-domain suffix. Empty input
// selects DefaultAllowedHosts.
func NewValidator(hosts []string) *Validator {
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			normalized = append(normalized, h)
		}
	}
	return &Validator{hosts: normalized}
}

// ValidateURL checks, in order: the URL parses, the scheme is https, and the
// host is on the allowlist. Plain http is always rejected.
func (v *Validator) ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return validationError(fmt.Sprintf("invalid URL %q", rawURL), err)
	}

	if u.Scheme != "https" {
		return validationError(fmt.Sprintf("URL scheme must be https, got %q", u.Scheme), nil)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return validationError("URL has no host", nil)
	}

	for _, allowed := range v.hosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return validationError(fmt.Sprintf("host %q is not an allowed API domain", host), nil)
}

// ValidateUserAgent enforces the SEC identification rule: the header must
// name the application and carry a contact email.
func ValidateUserAgent(ua string) error {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return validationError("UserAgent must not be empty", nil)
	}
	if !strings.Contains(ua, "@") {
		return validationError("UserAgent must include a contact email", nil)
	}
	if len(ua) < 10 {
		return validationError("UserAgent must include an application name and contact information", nil)
	}
	return nil
}
