package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var shopNameRe = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// ValidateShopName normalizes and validates a tenant name. Names are
// lowercased and trimmed; valid names are alphanumeric with interior
// hyphens or underscores, at most 63 characters. Returns the normalized
// name or an error describing the rejection.
func ValidateShopName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("invalid shop name %q: empty", name)
	}
	if len(n) > 63 {
		return "", fmt.Errorf("invalid shop name %q: longer than 63 characters", name)
	}
	if !shopNameRe.MatchString(n) {
		return "", fmt.Errorf("invalid shop name %q", name)
	}
	return n, nil
}
