package ratelimit

import (
	"net/http"
	"strings"
)

// MatchEndpoint resolves the budget for a request path and method, or nil
// when only the default budget applies. The health check is never limited so
// orchestration probes cannot be starved by a throttled client. An exact
// path+method match wins; otherwise a config path ending in "/" matches any
// request under that prefix, which is how the per-job status and download
// routes share the polling budget.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == http.MethodGet {
		return &EndpointConfig{}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}

	return nil
}
