package edgo

import (
	"fmt"
	"strings"
)

// NormalizeCIK converts any CIK spelling to the canonical zero-padded
// 10-digit form the API expects: "320193" → "0000320193",
// "CIK0000320193" → "0000320193".
func NormalizeCIK(cik string) string {
	var digits strings.Builder
	for _, r := range cik {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return fmt.Sprintf("%010s", digits.String())
}

// IsValidCIK reports whether cik is a non-empty all-digit string.
func IsValidCIK(cik string) bool {
	if cik == "" {
		return false
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
