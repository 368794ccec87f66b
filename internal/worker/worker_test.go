package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimpipe/claimpipe/internal/claims"
	"github.com/claimpipe/claimpipe/internal/event"
	"github.com/claimpipe/claimpipe/internal/store"
)

// fakeQueue hands out a fixed sequence of payloads, then blocks until the
// context is cancelled, like an empty Redis list would.
type fakeQueue struct {
	mu    sync.Mutex
	items [][]byte
}

func (q *fakeQueue) Push(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, payload)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return item, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

type savedEvent struct {
	ev     event.Event
	claims []claims.Claim
}

type fakeSink struct {
	mu       sync.Mutex
	saved    []savedEvent
	attempts int
	err      error
}

func (s *fakeSink) SaveEvent(ctx context.Context, ev event.Event, cs []claims.Claim) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return 0, s.err
	}
	s.saved = append(s.saved, savedEvent{ev: ev, claims: cs})
	return int64(len(s.saved)), nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func newTestWorker(t *testing.T, q *fakeQueue, sink *fakeSink) *Worker {
	t.Helper()
	matcher, err := claims.NewMatcher()
	require.NoError(t, err)
	w := New(q, sink, claims.NewExtractor(matcher), claims.NewMemory(), zerolog.Nop())
	w.popTimeout = 20 * time.Millisecond
	return w
}

func eventPayload(t *testing.T, actor int64, text string) []byte {
	t.Helper()
	data, err := json.Marshal(event.Event{
		Platform: "telegram",
		Message: event.Message{
			From: event.Sender{ID: actor},
			Date: 1700000000,
			Kind: event.KindText,
			Text: text,
		},
	})
	require.NoError(t, err)
	return data
}

func wait(t *testing.T, done func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !done() {
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func runUntil(t *testing.T, w *Worker, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(stopped)
	}()

	wait(t, done)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestProcessesEvent(t *testing.T) {
	q := &fakeQueue{items: [][]byte{eventPayload(t, 42, "I will deliver tomorrow")}}
	sink := &fakeSink{}
	w := newTestWorker(t, q, sink)

	runUntil(t, w, func() bool { return sink.count() == 1 })

	require.Len(t, sink.saved, 1)
	require.Len(t, sink.saved[0].claims, 1)
	assert.Equal(t, claims.TypeCommitment, sink.saved[0].claims[0].Type)
}

func TestMalformedItemIsDroppedLoopContinues(t *testing.T) {
	// One non-JSON item followed by one valid event: exactly one persisted
	// event, and the loop keeps running.
	q := &fakeQueue{items: [][]byte{
		[]byte("not json at all"),
		eventPayload(t, 42, "hello"),
	}}
	sink := &fakeSink{}
	w := newTestWorker(t, q, sink)

	runUntil(t, w, func() bool { return sink.count() == 1 })

	assert.Equal(t, 1, sink.count())
}

func TestPersistFailureDoesNotStopLoop(t *testing.T) {
	q := &fakeQueue{items: [][]byte{eventPayload(t, 1, "first")}}
	sink := &fakeSink{err: errors.New("connection lost")}
	w := newTestWorker(t, q, sink)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(stopped)
	}()

	wait(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.attempts == 1
	})

	// The failed event is dropped, not re-enqueued; the sink recovers and the
	// next event lands while the same loop keeps running.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	require.NoError(t, q.Push(context.Background(), eventPayload(t, 1, "second")))

	wait(t, func() bool { return sink.count() == 1 })
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}

	assert.Equal(t, "second", sink.saved[0].ev.Message.Text)
}

func TestContradictionAcrossEvents(t *testing.T) {
	q := &fakeQueue{items: [][]byte{
		eventPayload(t, 42, "I will pay monday"),
		eventPayload(t, 42, "I will pay tuesday"),
	}}
	sink := &fakeSink{}
	w := newTestWorker(t, q, sink)

	runUntil(t, w, func() bool { return sink.count() == 2 })

	require.Len(t, sink.saved[1].claims, 2)
	assert.Equal(t, claims.TypeContradiction, sink.saved[1].claims[1].Type)
}

func TestWarmSeedsMemory(t *testing.T) {
	q := &fakeQueue{items: [][]byte{eventPayload(t, 42, "I will pay tuesday")}}
	sink := &fakeSink{}
	w := newTestWorker(t, q, sink)

	// A pre-restart commitment from the claim log.
	w.Warm([]store.LastCommitment{{
		Actor:      "42",
		Commitment: claims.Commitment{Verb: "pay", Due: "monday", Text: "I will pay monday"},
	}})

	runUntil(t, w, func() bool { return sink.count() == 1 })

	require.Len(t, sink.saved[0].claims, 2)
	assert.Equal(t, claims.TypeContradiction, sink.saved[0].claims[1].Type)
}

func TestStopsOnCancel(t *testing.T) {
	q := &fakeQueue{}
	w := newTestWorker(t, q, &fakeSink{})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
