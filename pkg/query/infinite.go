package query

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reasons a FetchNext call was ignored.
const (
	reasonLoading   = "loading"
	reasonExhausted = "exhausted"
	reasonClosed    = "closed"
)

// Infinite is the cached state of one paginated query.
//
// Pages are kept in the order they were fetched or appended and are never
// reordered or deduplicated. Loading is flagged under the lock before the
// fetch goroutine starts, so concurrent callers cannot start a second fetch.
type Infinite[T any] struct {
	key    string
	fetch  FetchFunc[T]
	opts   Options
	logger zerolog.Logger

	mu        sync.Mutex
	pages     []Page[T]
	records   int
	fetched   int
	nextToken int
	hasNext   bool
	status    Status
	err       error
	closed    bool
	subs      map[uuid.UUID]chan Snapshot[T]
}

// NewInfinite creates an idle query with no pages. Most callers go through
// Store.Infinite instead.
func NewInfinite[T any](key string, fetch FetchFunc[T], opts Options) *Infinite[T] {
	if fetch == nil {
		panic("query: fetch func cannot be nil")
	}

	opts = opts.withDefaults()

	return &Infinite[T]{
		key:       key,
		fetch:     fetch,
		opts:      opts,
		logger:    log.With().Str("component", "query").Str("query", key).Logger(),
		nextToken: opts.FirstToken,
		status:    StatusIdle,
		subs:      make(map[uuid.UUID]chan Snapshot[T]),
	}
}

// Key returns the query identity.
func (q *Infinite[T]) Key() string {
	return q.key
}

// FetchNextAsync starts fetching the next page and returns a channel that
// receives exactly one Result. It returns false, and does nothing, when a
// fetch is already in flight, when the last page has been reached or when
// the query is closed.
//
// The fetch always resolves into the query state, even if the caller stops
// listening. A cancelled ctx surfaces as a failed fetch.
func (q *Infinite[T]) FetchNextAsync(ctx context.Context) (<-chan Result[T], bool) {
	q.mu.Lock()
	if reason := q.blockedLocked(); reason != "" {
		q.mu.Unlock()
		fetchesIgnored.WithLabelValues(q.key, reason).Inc()
		q.logger.Debug().Str("reason", reason).Msg("Fetch next ignored")
		return nil, false
	}

	token := q.nextToken
	q.status = StatusLoading
	q.publishLocked()
	q.mu.Unlock()

	q.logger.Debug().Int("token", token).Msg("Fetching page")

	done := make(chan Result[T], 1)
	go func() {
		defer close(done)

		start := time.Now()
		items, err := q.fetch(ctx, token)
		fetchDuration.WithLabelValues(q.key).Observe(time.Since(start).Seconds())

		done <- q.complete(token, items, err)
	}()

	return done, true
}

// FetchNext is FetchNextAsync followed by waiting for the result.
func (q *Infinite[T]) FetchNext(ctx context.Context) (Result[T], bool) {
	done, ok := q.FetchNextAsync(ctx)
	if !ok {
		return Result[T]{}, false
	}
	return <-done, true
}

// TryFetchNext starts a fetch without waiting for it and reports whether one
// was started.
func (q *Infinite[T]) TryFetchNext(ctx context.Context) bool {
	_, ok := q.FetchNextAsync(ctx)
	return ok
}

func (q *Infinite[T]) blockedLocked() string {
	switch {
	case q.closed:
		return reasonClosed
	case q.status == StatusLoading:
		return reasonLoading
	case q.fetched > 0 && !q.hasNext:
		return reasonExhausted
	}
	return ""
}

func (q *Infinite[T]) complete(token int, items []T, err error) Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err != nil {
		q.status = StatusError
		q.err = err
		fetchesTotal.WithLabelValues(q.key, "error").Inc()
		q.logger.Error().Err(err).Int("token", token).Msg("Page fetch failed")
		q.publishLocked()
		return Result[T]{Err: err}
	}

	page := Page[T]{Token: token, Items: slices.Clone(items)}
	q.pages = append(q.pages, page)
	q.records += len(items)
	q.fetched++
	q.nextToken, q.hasNext = q.opts.NextPage(token, len(items), q.opts.PageSize)
	q.status = StatusSuccess
	q.err = nil

	fetchesTotal.WithLabelValues(q.key, "success").Inc()
	q.setGaugesLocked()

	q.logger.Debug().
		Int("token", token).
		Int("records", len(items)).
		Bool("has_next", q.hasNext).
		Msg("Page fetched")

	q.publishLocked()
	return Result[T]{Page: page}
}

// setGaugesLocked publishes the dataset size. A closed query has already
// dropped its series and must not bring them back under a key that a new
// query may reuse.
func (q *Infinite[T]) setGaugesLocked() {
	if q.closed {
		return
	}
	cachedPages.WithLabelValues(q.key).Set(float64(len(q.pages)))
	cachedRecords.WithLabelValues(q.key).Set(float64(q.records))
}

// AppendLocal adds record as a one-record page at the end of the dataset
// without a network call. hasNextPage is not affected.
func (q *Infinite[T]) AppendLocal(record T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pages = append(q.pages, Page[T]{Items: []T{record}, Local: true})
	q.records++
	if q.status == StatusIdle {
		q.status = StatusSuccess
	}

	localAppends.WithLabelValues(q.key).Inc()
	q.setGaugesLocked()

	q.logger.Debug().Int("records", q.records).Msg("Appended local record")
	q.publishLocked()
}

// Snapshot returns a copy of the current state. It never triggers a fetch.
func (q *Infinite[T]) Snapshot() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Pages returns a copy of the cached pages in order.
func (q *Infinite[T]) Pages() []Page[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	pages := make([]Page[T], len(q.pages))
	for i, p := range q.pages {
		pages[i] = Page[T]{Token: p.Token, Items: slices.Clone(p.Items), Local: p.Local}
	}
	return pages
}

func (q *Infinite[T]) snapshotLocked() Snapshot[T] {
	data := make([]T, 0, q.records)
	for _, p := range q.pages {
		data = append(data, p.Items...)
	}

	snap := Snapshot[T]{
		Key:         q.key,
		Data:        data,
		Pages:       len(q.pages),
		Status:      q.status,
		HasNextPage: q.hasNext,
		Err:         q.err,
	}
	if q.err != nil {
		snap.ErrorMessage = q.err.Error()
	}
	return snap
}

// Subscribe returns a channel carrying the latest snapshot after every state
// change, starting with the current one. Slow readers only see the most
// recent value. The returned func unsubscribes and closes the channel.
func (q *Infinite[T]) Subscribe() (<-chan Snapshot[T], func()) {
	ch := make(chan Snapshot[T], 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := uuid.New()
	q.subs[id] = ch
	ch <- q.snapshotLocked()
	q.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if c, ok := q.subs[id]; ok {
				delete(q.subs, id)
				close(c)
			}
		})
	}
}

// publishLocked replaces any unread snapshot. Senders hold q.mu, so the
// send after draining cannot block.
func (q *Infinite[T]) publishLocked() {
	if len(q.subs) == 0 {
		return
	}

	snap := q.snapshotLocked()
	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close ends all subscriptions and turns later fetches into no-ops. A fetch
// already in flight still completes into the state.
func (q *Infinite[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}

	cachedPages.DeleteLabelValues(q.key)
	cachedRecords.DeleteLabelValues(q.key)
}
