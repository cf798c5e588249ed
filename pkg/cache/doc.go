// Package cache keeps raw API responses in Redis so repeated page requests
// can be revalidated instead of re-downloaded.
//
// The cache never answers a request on its own. Every lookup still results
// in one outbound request; when a stored entry carries an ETag or a
// Last-Modified date the request is made conditional, and a 304 reply is
// answered from the stored body.
//
// # Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Endpoint: "/api/character",
//		Query:    url.Values{"page": []string{"2"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == nil && cache.CanRevalidate(entry) {
//		cache.SetConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - rnm_cache_hits_total - entries found in Redis
//   - rnm_cache_misses_total - lookups with no usable entry
//   - rnm_cache_stored_bytes - bytes written to Redis
//   - rnm_cache_revalidations_total{result} - conditional requests by outcome
//   - rnm_cache_errors_total{operation} - Redis and codec failures
package cache
