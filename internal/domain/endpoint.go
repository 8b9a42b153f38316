package domain

import (
	"fmt"
	"net/url"
)

// ValidateEndpoint checks that endpoint is an absolute http(s) URL with a
// host. It returns a ConfigurationError otherwise.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return ConfigurationError("webhook URL is not configured", nil)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return ConfigurationError(fmt.Sprintf("webhook URL is invalid: %v", err), map[string]any{"endpoint": endpoint})
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ConfigurationError(fmt.Sprintf("webhook URL scheme %q is not http or https", u.Scheme), map[string]any{"endpoint": endpoint})
	}
	if u.Host == "" {
		return ConfigurationError("webhook URL has no host", map[string]any{"endpoint": endpoint})
	}
	return nil
}
