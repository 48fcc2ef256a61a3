package mirror

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thiagomk/eventdesk/internal/config"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/observe"
)

// Trigger identifies who asked for a refresh.
type Trigger string

const (
	// TriggerExplicit is a direct user request (initial load, manual refresh,
	// after a mutation). Explicit refreshes are loud.
	TriggerExplicit Trigger = "explicit"
	// TriggerPush is a remote change notification. Push refreshes are quiet
	// and may be debounced.
	TriggerPush Trigger = "push"
	// TriggerPoll is the periodic fallback. Polls are quiet, yield to pushes
	// and are dropped when anything else is running.
	TriggerPoll Trigger = "poll"
)

// Options configures one collection engine.
type Options struct {
	Collection string
	// PushPolicy is config.PushDebounced or config.PushImmediate.
	PushPolicy     string
	DebounceWindow time.Duration
	PollInterval   time.Duration
}

// Syncer is the collection-agnostic view of an Engine, used by the HTTP layer
// to request refreshes and report readiness without knowing the entity type.
type Syncer interface {
	Collection() string
	Request(t Trigger)
	Ready() bool
	Loading() bool
	Close()
}

// Engine drives one collection's synchronization: it performs the initial
// load, routes triggers to the reconciler, debounces push bursts and runs the
// poll fallback.
type Engine[T any] struct {
	opts     Options
	mirror   *Mirror[T]
	rec      *Reconciler[T]
	requests chan Trigger
	cancel   context.CancelFunc
	done     chan struct{}
}

// Start builds the mirror and reconciler for a collection and launches the
// engine loop. The initial load begins immediately and is loud.
func Start[T any](opts Options, fetch Fetcher[T], notifier notify.Notifier) *Engine[T] {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 400 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.PushPolicy == "" {
		opts.PushPolicy = config.PushDebounced
	}

	m := NewMirror[T](opts.Collection)
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[T]{
		opts:     opts,
		mirror:   m,
		rec:      NewReconciler(opts.Collection, fetch, m, notifier),
		requests: make(chan Trigger, 16),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go e.run(ctx)
	return e
}

func (e *Engine[T]) Collection() string { return e.opts.Collection }

// Snapshot returns a copy of the mirrored collection.
func (e *Engine[T]) Snapshot() []T { return e.mirror.Snapshot() }

// Ready reports whether the first snapshot has landed.
func (e *Engine[T]) Ready() bool { return e.mirror.Ready() }

// Loading reports whether a loud refresh is in flight.
func (e *Engine[T]) Loading() bool { return e.rec.Loading() }

// Request asks for a refresh. It never blocks; when the engine is saturated
// the trigger is dropped, which is safe because every refresh reloads the
// whole collection anyway.
func (e *Engine[T]) Request(t Trigger) {
	select {
	case e.requests <- t:
	default:
		observe.CountDecision(e.opts.Collection, string(t), "dropped")
		log.Debug("sync engine saturated, dropping trigger",
			"collection", e.opts.Collection, "trigger", t)
	}
}

// Close stops the engine and waits for the loop to exit. No refreshes or
// notifications happen after Close returns.
func (e *Engine[T]) Close() {
	e.cancel()
	<-e.done
}

func (e *Engine[T]) run(ctx context.Context) {
	defer close(e.done)

	e.rec.Refresh(ctx, true)

	var debounce *time.Timer
	var debounceC <-chan time.Time
	pushPending := false

	poll := time.NewTicker(e.opts.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case trig := <-e.requests:
			switch trig {
			case TriggerExplicit:
				observe.CountDecision(e.opts.Collection, string(trig), "run")
				e.rec.Refresh(ctx, true)

			case TriggerPush:
				if e.opts.PushPolicy == config.PushImmediate {
					observe.CountDecision(e.opts.Collection, string(trig), "run")
					e.rec.Refresh(ctx, false)
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(e.opts.DebounceWindow)
					debounceC = debounce.C
					observe.CountDecision(e.opts.Collection, string(trig), "debounced")
				} else {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(e.opts.DebounceWindow)
					observe.CountDecision(e.opts.Collection, string(trig), "merged")
				}
				pushPending = true

			case TriggerPoll:
				e.poll(ctx, pushPending)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			pushPending = false
			observe.CountDecision(e.opts.Collection, string(TriggerPush), "run")
			e.rec.Refresh(ctx, false)

		case <-poll.C:
			e.poll(ctx, pushPending)
		}
	}
}

// poll runs the fallback refresh. It yields when a push is already pending
// and drops when a refresh is in flight; a poll never queues work.
func (e *Engine[T]) poll(ctx context.Context, pushPending bool) {
	if pushPending {
		observe.CountDecision(e.opts.Collection, string(TriggerPoll), "dropped")
		return
	}
	outcome, _ := e.rec.TryRefresh(ctx)
	if outcome == OutcomeDropped {
		observe.CountDecision(e.opts.Collection, string(TriggerPoll), "dropped")
		return
	}
	observe.CountDecision(e.opts.Collection, string(TriggerPoll), "run")
}
