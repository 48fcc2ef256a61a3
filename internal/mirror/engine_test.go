package mirror

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiagomk/eventdesk/internal/config"
	"github.com/thiagomk/eventdesk/internal/notify"
)

func countingFetcher(calls *atomic.Int32) Fetcher[int] {
	return func(ctx context.Context) ([]int, error) {
		n := calls.Add(1)
		return []int{int(n)}, nil
	}
}

func TestEngineLoadsOnStart(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:   "events",
		PollInterval: time.Hour,
	}, countingFetcher(&calls), notify.Discard)
	defer e.Close()

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1}, e.Snapshot())
	assert.Equal(t, "events", e.Collection())
}

func TestEngineExplicitTriggerRefreshes(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:   "demands",
		PollInterval: time.Hour,
	}, countingFetcher(&calls), notify.Discard)
	defer e.Close()

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)
	e.Request(TriggerExplicit)

	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestEngineDebouncesPushBursts(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:     "notes",
		PushPolicy:     config.PushDebounced,
		DebounceWindow: 30 * time.Millisecond,
		PollInterval:   time.Hour,
	}, countingFetcher(&calls), notify.Discard)
	defer e.Close()

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)

	// A burst of notifications produces exactly one reload.
	for i := 0; i < 5; i++ {
		e.Request(TriggerPush)
	}
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
}

func TestEngineImmediatePushPolicy(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:   "crm_contacts",
		PushPolicy:   config.PushImmediate,
		PollInterval: time.Hour,
	}, countingFetcher(&calls), notify.Discard)
	defer e.Close()

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)

	e.Request(TriggerPush)
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)

	e.Request(TriggerPush)
	require.Eventually(t, func() bool {
		return calls.Load() == 3
	}, time.Second, 5*time.Millisecond)
}

func TestEngineRefreshWithoutRemoteChangeIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:   "demands",
		PollInterval: time.Hour,
	}, func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"book caterer", "send invites"}, nil
	}, notify.Discard)
	defer e.Close()

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)
	first := e.Snapshot()

	e.Request(TriggerExplicit)
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, first, e.Snapshot())
}

func TestEnginePollFallbackKeepsRefreshing(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:   "events",
		PollInterval: 20 * time.Millisecond,
	}, countingFetcher(&calls), notify.Discard)
	defer e.Close()

	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestEnginePollYieldsToPendingPush(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:     "events",
		PushPolicy:     config.PushDebounced,
		DebounceWindow: 150 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
	}, countingFetcher(&calls), notify.Discard)
	defer e.Close()

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)

	// While the debounce window is open, polls must not fire.
	e.Request(TriggerPush)
	time.Sleep(20 * time.Millisecond)
	before := calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, before, calls.Load())

	// The debounced reload itself still runs.
	require.Eventually(t, func() bool {
		return calls.Load() == before+1
	}, time.Second, 5*time.Millisecond)
}

func TestEngineCloseStopsAllRefreshing(t *testing.T) {
	var calls atomic.Int32
	e := Start(Options{
		Collection:   "events",
		PollInterval: 10 * time.Millisecond,
	}, countingFetcher(&calls), notify.Discard)

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)
	e.Close()

	frozen := calls.Load()
	e.Request(TriggerExplicit)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, calls.Load())
}
