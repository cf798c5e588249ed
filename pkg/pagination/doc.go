// Package pagination fetches every page of a paginated endpoint in parallel.
//
// The API announces the total page count in info.pages of each page body.
// BatchFetcher reads it from page 1 and spreads the remaining pages over a
// small worker pool:
//
//	fetcher := pagination.NewBatchFetcher(apiClient, pagination.DefaultConfig())
//	pages, err := fetcher.FetchAllPages(ctx, client.CharacterEndpoint)
//	for _, body := range pagination.Ordered(pages) {
//		...
//	}
//
// On the first failed page the remaining work is cancelled and the pages
// fetched so far are returned together with the error.
//
// This is a bulk export path. It bypasses the query cache and its
// one-fetch-at-a-time rule.
package pagination
