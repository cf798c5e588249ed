package cache

import (
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces every key this package writes.
const keyPrefix = "rnm"

// Key identifies a cached response by endpoint and query string.
type Key struct {
	// Endpoint is the request path, e.g. "/api/character".
	Endpoint string

	// Query holds the request query parameters, e.g. page=2.
	Query url.Values
}

// String builds a deterministic Redis key.
//
//	rnm:api/character:page=2
//
// Query parameters are sorted by name; repeated values are joined with ",".
func (k Key) String() string {
	parts := []string{keyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
	}

	return strings.Join(parts, ":")
}

// KeyFromURL derives a Key from a request URL.
func KeyFromURL(u *url.URL) Key {
	return Key{
		Endpoint: u.Path,
		Query:    u.Query(),
	}
}
