package query

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrStoreClosed is returned when a query is requested from a closed store.
	ErrStoreClosed = errors.New("query store closed")

	// ErrEmptyKey is returned for an empty query key.
	ErrEmptyKey = errors.New("query key is required")
)

// Store holds the queries of one session, keyed by query identity.
type Store[T any] struct {
	mu      sync.Mutex
	queries map[string]*Infinite[T]
	closed  bool
	logger  zerolog.Logger
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		queries: make(map[string]*Infinite[T]),
		logger:  log.With().Str("component", "query-store").Logger(),
	}
}

// Infinite returns the query for key, creating it on first use. fetch and
// opts only apply when the query is created.
func (s *Store[T]) Infinite(key string, fetch FetchFunc[T], opts Options) (*Infinite[T], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	if q, ok := s.queries[key]; ok {
		return q, nil
	}

	q := NewInfinite(key, fetch, opts)
	s.queries[key] = q
	s.logger.Info().Str("query", key).Msg("Query created")
	return q, nil
}

// Get returns an existing query.
func (s *Store[T]) Get(key string) (*Infinite[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[key]
	return q, ok
}

// Keys returns the keys of all queries, sorted.
func (s *Store[T]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.queries))
	for k := range s.queries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Remove closes and forgets the query for key. It reports whether the key
// existed.
func (s *Store[T]) Remove(key string) bool {
	s.mu.Lock()
	q, ok := s.queries[key]
	delete(s.queries, key)
	s.mu.Unlock()

	if ok {
		q.Close()
		s.logger.Info().Str("query", key).Msg("Query removed")
	}
	return ok
}

// Close discards every query. The store cannot be used afterwards.
func (s *Store[T]) Close() {
	s.mu.Lock()
	queries := s.queries
	s.queries = make(map[string]*Infinite[T])
	s.closed = true
	s.mu.Unlock()

	for _, q := range queries {
		q.Close()
	}
	s.logger.Info().Int("queries", len(queries)).Msg("Query store closed")
}
