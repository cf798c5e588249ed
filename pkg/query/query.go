package query

import (
	"context"
)

// DefaultPageSize is the page length that signals more data may follow.
const DefaultPageSize = 20

// Status is the lifecycle state of a query or mutation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FetchFunc loads the page identified by token.
type FetchFunc[T any] func(ctx context.Context, token int) ([]T, error)

// Page is one batch of records plus the token that fetched it. Pages added
// with AppendLocal are marked Local and carry token 0.
type Page[T any] struct {
	Token int  `json:"token"`
	Items []T  `json:"items"`
	Local bool `json:"local,omitempty"`
}

// Result is the outcome of one page fetch.
type Result[T any] struct {
	Page Page[T]
	Err  error
}

// OK reports whether the fetch succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Snapshot is a point-in-time copy of a query's state.
type Snapshot[T any] struct {
	Key          string `json:"key"`
	Data         []T    `json:"data"`
	Pages        int    `json:"pages"`
	Status       Status `json:"status"`
	HasNextPage  bool   `json:"hasNextPage"`
	Err          error  `json:"-"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// IsLoading reports whether a fetch is in flight.
func (s Snapshot[T]) IsLoading() bool {
	return s.Status == StatusLoading
}

// IsError reports whether the last fetch failed.
func (s Snapshot[T]) IsError() bool {
	return s.Status == StatusError
}

// Options configures an Infinite.
type Options struct {
	// PageSize is the length of a full page. Defaults to DefaultPageSize.
	PageSize int

	// FirstToken is the token of the first page. Defaults to 1.
	FirstToken int

	// NextPage derives the following token. Defaults to NextPageIndex.
	NextPage NextPageFunc
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.FirstToken <= 0 {
		o.FirstToken = 1
	}
	if o.NextPage == nil {
		o.NextPage = NextPageIndex
	}
	return o
}
