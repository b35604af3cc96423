// Package resource holds remote data with an explicit fetch lifecycle.
//
// A Resource wraps one backend read (a list of models, the compliance
// posture) and tracks it through idle, loading, ready, and failed states.
// Read failures are captured into the state and never returned to the
// caller; mutation failures are returned so the caller can surface them.
package resource

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a resource.
type State int

const (
	// StateIdle means no fetch has been attempted yet.
	StateIdle State = iota
	// StateLoading means a fetch is in flight.
	StateLoading
	// StateReady means the last applied fetch succeeded.
	StateReady
	// StateFailed means the last applied fetch failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a resource at one point in time.
type Snapshot[T any] struct {
	State   State
	Loading bool
	Data    T
	Err     error
	// Version increases every time a fetch result is applied.
	Version uint64
}

// FetchFunc loads the resource value from the backend.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Resource tracks one remote value. Safe for concurrent use.
type Resource[T any] struct {
	name    string
	fetch   FetchFunc[T]
	offline func() bool
	logger  zerolog.Logger

	mu      sync.Mutex
	snap    Snapshot[T]
	seq     uint64 // last fetch started
	applied uint64 // last fetch whose result was applied
	subs    []func(Snapshot[T])
}

// Option configures a Resource.
type Option[T any] func(*Resource[T])

// WithLogger sets the resource logger.
func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(r *Resource[T]) {
		r.logger = logger.With().Str("component", "resource").Str("resource", r.name).Logger()
	}
}

// WithOfflineGuard makes Fetch a no-op while the guard reports true. Models
// environments where no runtime capable of completing the request exists.
func WithOfflineGuard[T any](guard func() bool) Option[T] {
	return func(r *Resource[T]) { r.offline = guard }
}

// New creates a resource bound to the given fetch function.
func New[T any](name string, fetch FetchFunc[T], opts ...Option[T]) *Resource[T] {
	r := &Resource[T]{
		name:   name,
		fetch:  fetch,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns the current view of the resource.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Subscribe registers fn to be called (synchronously, in Fetch's goroutine)
// whenever the snapshot changes.
func (r *Resource[T]) Subscribe(fn func(Snapshot[T])) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Fetch loads the resource and applies the result to the snapshot. A fetch
// whose result arrives after a newer fetch has already been applied is
// discarded, so overlapping refetches cannot roll the state backwards.
// Failures are captured into the snapshot, never returned.
func (r *Resource[T]) Fetch(ctx context.Context) {
	if r.offline != nil && r.offline() {
		r.mu.Lock()
		r.snap.Loading = false
		snap := r.snap
		subs := r.subs
		r.mu.Unlock()
		r.logger.Debug().Msg("fetch skipped: offline")
		notify(subs, snap)
		return
	}

	r.mu.Lock()
	r.seq++
	mine := r.seq
	r.snap.State = StateLoading
	r.snap.Loading = true
	snap := r.snap
	subs := r.subs
	r.mu.Unlock()
	notify(subs, snap)

	data, err := r.fetch(ctx)

	r.mu.Lock()
	if mine < r.applied {
		// A newer fetch already finished; this result is stale.
		r.mu.Unlock()
		r.logger.Debug().Uint64("seq", mine).Msg("stale fetch result dropped")
		return
	}
	r.applied = mine
	r.snap.Loading = r.seq > mine // an even newer fetch may still be running
	r.snap.Version++
	if err != nil {
		r.snap.State = StateFailed
		r.snap.Err = err
		var zero T
		r.snap.Data = zero
	} else {
		r.snap.State = StateReady
		r.snap.Err = nil
		r.snap.Data = data
	}
	snap = r.snap
	subs = r.subs
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug().Err(err).Msg("fetch failed")
	}
	notify(subs, snap)
}

// Refetch re-enters the loading state from any state.
func (r *Resource[T]) Refetch(ctx context.Context) {
	r.Fetch(ctx)
}

// Mutate runs a write operation. Its error is returned to the caller, and a
// refetch happens only on success; there is no optimistic update.
func (r *Resource[T]) Mutate(ctx context.Context, mutate func(ctx context.Context) error) error {
	if err := mutate(ctx); err != nil {
		return err
	}
	r.Fetch(ctx)
	return nil
}

func notify[T any](subs []func(Snapshot[T]), snap Snapshot[T]) {
	for _, fn := range subs {
		fn(snap)
	}
}
