package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached catalog response. Two logically equal requests must
// produce the same key string, so parameter ordering and path normalization
// are handled here rather than at call sites.
type Key struct {
	// Path is the request path (e.g. "/work/detail").
	Path string

	// Params are path-level parameters (e.g. {"id": "VJ012345"}).
	Params map[string]string

	// Query are the query parameters of the request.
	Query url.Values
}

// String generates a deterministic key string.
// Format: catalog:path:param1=val1:query1=val1
//
// Example:
//
//	catalog:work/detail:id=VJ012345:locale=en
func (k Key) String() string {
	parts := []string{"catalog"}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Query.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
