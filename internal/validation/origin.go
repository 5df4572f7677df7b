// Package validation checks host names and browser origins before they
// reach the listener or the websocket upgrade.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " ", "\n", "\r"}

// ValidateHost rejects listen hosts carrying shell or markup metacharacters.
func ValidateHost(host string) error {
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %q", char)
		}
	}
	return nil
}

// ParseOrigin parses an http or https origin. Paths, queries and user info
// are not part of an origin and are rejected, as is a wildcard anywhere in
// the host.
func ParseOrigin(origin string) (*url.URL, error) {
	if origin == "" {
		return nil, fmt.Errorf("origin header is required")
	}
	if origin == "*" {
		return nil, fmt.Errorf("wildcard origin is not allowed")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin %q has no host", origin)
	}
	if strings.Contains(u.Host, "*") {
		return nil, fmt.Errorf("wildcard origin %q is not allowed", origin)
	}
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("origin %q must be scheme://host[:port] only", origin)
	}
	return u, nil
}

// ValidateOrigin checks a request origin against allowed entries. An entry
// is either a full origin ("https://lab.example") or a bare host with port
// ("localhost:8080") matching any scheme.
func ValidateOrigin(origin string, allowed []string) error {
	u, err := ParseOrigin(origin)
	if err != nil {
		return err
	}

	normalized := u.Scheme + "://" + u.Host
	for _, entry := range allowed {
		entry = strings.TrimSuffix(entry, "/")
		if strings.EqualFold(entry, normalized) || strings.EqualFold(entry, u.Host) {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
