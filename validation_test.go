package edgo

import (
	"errors"
	"testing"
)

func TestValidateURLScheme(t *testing.T) {
	v := NewValidator([]string{"example.org"})

	if err := v.ValidateURL("http://example.com/test"); err == nil {
		t.Error("expected http scheme to be rejected")
	}
	if err := v.ValidateURL("https://example.com/test"); err == nil {
		t.Error("expected non-allowlisted host to be rejected")
	}
	if err := v.ValidateURL("https://api.example.org/x"); err != nil {
		t.Errorf("expected subdomain of allowlisted domain to pass, got %v", err)
	}
}

func TestValidateURLDefaultHosts(t *testing.T) {
	v := NewValidator(nil)

	valid := []string{
		"https://data.sec.gov/api/xbrl/companyfacts/CIK0000320193.json",
		"https://www.sec.gov/files/company_tickers.json",
		"https://efts.sec.gov/LATEST/search-index?q=test",
	}
	for _, u := range valid {
		if err := v.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"http://data.sec.gov/api",          // wrong scheme
		"https://evil.com/fake",            // wrong host
		"https://sec.gov.evil.com/payload", // suffix trick
		"https://",                         // no host
		"not a url at all\x7f://",          // unparseable
	}
	for _, u := range invalid {
		if err := v.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

// validate must be a pure function of scheme and host: repeated calls give
// identical verdicts, and the path/query never changes the outcome.
func TestValidateURLDeterminism(t *testing.T) {
	v := NewValidator(nil)

	urls := []string{
		"https://data.sec.gov/a",
		"https://data.sec.gov/a?q=1&x=%20y",
		"https://data.sec.gov/deeply/nested/path.json",
		"http://data.sec.gov/a",
		"https://example.com/a",
	}
	first := make([]bool, len(urls))
	for i, u := range urls {
		first[i] = v.ValidateURL(u) == nil
	}
	for round := 0; round < 3; round++ {
		for i, u := range urls {
			if got := v.ValidateURL(u) == nil; got != first[i] {
				t.Fatalf("verdict for %q changed between calls", u)
			}
		}
	}
	if !first[0] || !first[1] || !first[2] {
		t.Error("allowed-host https URLs must be accepted for every path/query")
	}
	if first[3] || first[4] {
		t.Error("http scheme and foreign hosts must always be rejected")
	}
}

func TestValidationErrorKind(t *testing.T) {
	v := NewValidator(nil)
	err := v.ValidateURL("https://evil.com/")

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected *ClientError, got %T", err)
	}
	if clientErr.Kind != ErrorKindValidation {
		t.Errorf("expected Validation kind, got %s", clientErr.Kind)
	}
	if IsRetryable(err) {
		t.Error("validation errors must never be retryable")
	}
}

func TestValidateUserAgent(t *testing.T) {
	valid := []string{
		"MyApp contact@example.com",
		"Company/1.0 admin@company.com",
	}
	for _, ua := range valid {
		if err := ValidateUserAgent(ua); err != nil {
			t.Errorf("ValidateUserAgent(%q) = %v, want nil", ua, err)
		}
	}

	invalid := []string{
		"",
		"MyApp",  // missing email
		"a@b.c",  // too short
		"   ",    // blank
	}
	for _, ua := range invalid {
		if err := ValidateUserAgent(ua); err == nil {
			t.Errorf("ValidateUserAgent(%q) = nil, want error", ua)
		}
	}
}
