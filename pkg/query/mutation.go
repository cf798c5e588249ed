package query

import (
	"context"
	"sync"
)

// MutateFunc performs the remote side of a mutation.
type MutateFunc[T any] func(ctx context.Context) (T, error)

// MutationState is the outcome of the most recent Mutate call.
type MutationState[T any] struct {
	Status Status
	Data   T
	Err    error
}

// Mutation runs a remote call and hands its result to onSuccess, typically
// an Infinite's AppendLocal.
type Mutation[T any] struct {
	fn        MutateFunc[T]
	onSuccess func(T)

	mu    sync.Mutex
	state MutationState[T]
}

// NewMutation creates an idle mutation. onSuccess may be nil.
func NewMutation[T any](fn MutateFunc[T], onSuccess func(T)) *Mutation[T] {
	if fn == nil {
		panic("query: mutate func cannot be nil")
	}
	return &Mutation[T]{
		fn:        fn,
		onSuccess: onSuccess,
		state:     MutationState[T]{Status: StatusIdle},
	}
}

// Mutate runs the mutation. onSuccess is only called when fn succeeds.
func (m *Mutation[T]) Mutate(ctx context.Context) (T, error) {
	m.set(MutationState[T]{Status: StatusLoading})

	v, err := m.fn(ctx)
	if err != nil {
		m.set(MutationState[T]{Status: StatusError, Err: err})
		var zero T
		return zero, err
	}

	m.set(MutationState[T]{Status: StatusSuccess, Data: v})
	if m.onSuccess != nil {
		m.onSuccess(v)
	}
	return v, nil
}

// State returns the current state.
func (m *Mutation[T]) State() MutationState[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mutation[T]) set(s MutationState[T]) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
