// Package query caches paginated results in memory, one Infinite per query
// key.
//
// An Infinite holds the pages fetched so far in fetch order and exposes
// their concatenation. At most one page fetch is in flight per Infinite;
// FetchNext calls made while a fetch is running, or after the last page,
// are no-ops and do not reach the network.
//
//	store := query.NewStore[character.Character]()
//	defer store.Close()
//
//	characters, err := store.Infinite("characters", apiClient.FetchPage, query.Options{})
//	if err != nil {
//		return err
//	}
//
//	res, started := characters.FetchNext(ctx)
//	snap := characters.Snapshot()
//
// Consumers that render state subscribe instead of polling:
//
//	updates, cancel := characters.Subscribe()
//	defer cancel()
//	for snap := range updates {
//		render(snap)
//	}
package query
