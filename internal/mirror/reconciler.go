package mirror

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/observe"
)

// Fetcher loads the full remote snapshot of one collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Outcome describes what a refresh request did.
type Outcome string

const (
	// OutcomeApplied means a fetch ran and its snapshot was installed.
	OutcomeApplied Outcome = "applied"
	// OutcomeStale means a fetch ran but a newer snapshot had already landed.
	OutcomeStale Outcome = "stale"
	// OutcomeSuppressed means another refresh was in flight; a trailing
	// refresh was scheduled to run after it.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeDropped means another refresh was in flight and the request was
	// discarded without scheduling anything.
	OutcomeDropped Outcome = "dropped"
	// OutcomeFailed means the fetch errored and the mirror was left untouched.
	OutcomeFailed Outcome = "failed"
)

// Reconciler enforces the fetch discipline for one collection: at most one
// fetch in flight, concurrent requests coalesced into a single trailing
// refresh, and stale snapshots rejected by sequence number.
type Reconciler[T any] struct {
	collection string
	fetch      Fetcher[T]
	mirror     *Mirror[T]
	notifier   notify.Notifier

	seq     atomic.Uint64
	loading atomic.Bool

	mu       sync.Mutex
	inFlight bool
	trailing bool
}

// NewReconciler builds a reconciler over the given mirror.
func NewReconciler[T any](collection string, fetch Fetcher[T], m *Mirror[T], n notify.Notifier) *Reconciler[T] {
	if n == nil {
		n = notify.Discard
	}
	return &Reconciler[T]{collection: collection, fetch: fetch, mirror: m, notifier: n}
}

// Loading reports whether a loud refresh is currently fetching. Quiet
// refreshes never surface a loading state.
func (r *Reconciler[T]) Loading() bool { return r.loading.Load() }

// Refresh fetches and installs a new snapshot. If a refresh is already in
// flight the request is coalesced: any number of overlapping calls produce
// exactly one trailing refresh once the running one finishes, and each
// overlapping caller returns OutcomeSuppressed immediately. A suppressed
// caller does not observe the coalesced fetch's result; callers that need it
// watch Ready(), Loading() or the notifier.
//
// loud marks the refresh as user-visible: the loading flag is raised while
// the fetch runs. Trailing refreshes are always quiet.
func (r *Reconciler[T]) Refresh(ctx context.Context, loud bool) (Outcome, error) {
	r.mu.Lock()
	if r.inFlight {
		r.trailing = true
		r.mu.Unlock()
		return OutcomeSuppressed, nil
	}
	r.inFlight = true
	r.mu.Unlock()

	outcome, err := r.fetchOnce(ctx, loud)
	r.drainTrailing(ctx)
	return outcome, err
}

// TryRefresh is the poll variant of Refresh: if a refresh is already in
// flight the request is dropped outright instead of scheduling a trailing
// one. Polls must never queue behind other work.
func (r *Reconciler[T]) TryRefresh(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return OutcomeDropped, nil
	}
	r.inFlight = true
	r.mu.Unlock()

	outcome, err := r.fetchOnce(ctx, false)
	r.drainTrailing(ctx)
	return outcome, err
}

// drainTrailing runs the refreshes owed to suppressed callers and releases
// the in-flight flag only once none remain. The flag is held for the whole
// drain so at most one fetch is ever outstanding per collection.
func (r *Reconciler[T]) drainTrailing(ctx context.Context) {
	for {
		r.mu.Lock()
		if !r.trailing || ctx.Err() != nil {
			r.inFlight = false
			r.mu.Unlock()
			return
		}
		r.trailing = false
		r.mu.Unlock()
		r.fetchOnce(ctx, false)
	}
}

func (r *Reconciler[T]) fetchOnce(ctx context.Context, loud bool) (Outcome, error) {
	seq := r.seq.Add(1)
	if loud {
		r.loading.Store(true)
		defer r.loading.Store(false)
	}

	start := time.Now()
	items, err := r.fetch(ctx)
	elapsed := time.Since(start)

	if err != nil {
		observe.CountReconcile(r.collection, string(OutcomeFailed), elapsed)
		if ctx.Err() == nil {
			r.notifier.Notify(
				fmt.Sprintf("Failed to refresh %s", r.collection),
				err.Error(),
				notify.SeverityError,
			)
		}
		return OutcomeFailed, fmt.Errorf("mirror: refresh %s: %w", r.collection, err)
	}

	if !r.mirror.replace(items, seq) {
		observe.CountReconcile(r.collection, string(OutcomeStale), elapsed)
		return OutcomeStale, nil
	}
	observe.CountReconcile(r.collection, string(OutcomeApplied), elapsed)
	return OutcomeApplied, nil
}
