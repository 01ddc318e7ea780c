package config

import (
	"fmt"
	"net/url"
	"strings"
)

// BackendConfig points to the plant-care REST backend that all /api calls are proxied to.
type BackendConfig struct {
	URL *url.URL
	// Prefix of the gateway routes that are proxied, it is stripped before forwarding.
	APIPathPrefix string
}

// Validate also roots a relative backend url path, the path ends up as is in the request line
// of every proxied request.
func (c *BackendConfig) Validate(e RunningEnvironment) error {
	if c.URL == nil {
		return fmt.Errorf("the backend config is missing the url to the backend")
	}
	if c.URL.Path != "" && !strings.HasPrefix(c.URL.Path, "/") {
		c.URL.Path = "/" + c.URL.Path
		if c.URL.RawPath != "" {
			c.URL.RawPath = "/" + c.URL.RawPath
		}
	}
	if e != Development && c.URL.Scheme != "https" {
		return fmt.Errorf("the backend url has to use https in production, got scheme %q", c.URL.Scheme)
	}
	if c.APIPathPrefix == "" || c.APIPathPrefix[0] != '/' {
		return fmt.Errorf("the api path prefix %q has to start with a slash", c.APIPathPrefix)
	}
	return nil
}
