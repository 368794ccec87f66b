// Package worker drives the consume, extract, persist cycle.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimpipe/claimpipe/internal/claims"
	"github.com/claimpipe/claimpipe/internal/event"
	"github.com/claimpipe/claimpipe/internal/metrics"
	"github.com/claimpipe/claimpipe/internal/queue"
	"github.com/claimpipe/claimpipe/internal/store"
)

const defaultPopTimeout = 5 * time.Second

// Worker is the single long-lived consumer. It owns the commitment memory
// and processes strictly one event at a time, so the memory is read then
// written without interleaving. Running more than one worker breaks
// contradiction ordering unless the queue partitions actors.
type Worker struct {
	queue      queue.Queue
	sink       store.Sink
	extractor  *claims.Extractor
	memory     *claims.Memory
	log        zerolog.Logger
	popTimeout time.Duration
}

func New(q queue.Queue, sink store.Sink, ext *claims.Extractor, mem *claims.Memory, log zerolog.Logger) *Worker {
	return &Worker{
		queue:      q,
		sink:       sink,
		extractor:  ext,
		memory:     mem,
		log:        log,
		popTimeout: defaultPopTimeout,
	}
}

// Warm seeds the commitment memory from the persisted claim log, so
// contradictions against pre-restart commitments stay detectable.
func (w *Worker) Warm(entries []store.LastCommitment) {
	for _, lc := range entries {
		w.memory.Put(lc.Actor, lc.Commitment.Verb, lc.Commitment)
	}
	w.log.Info().Int("keys", w.memory.Len()).Msg("commitment memory warmed")
}

// Run loops until ctx is cancelled. Each iteration pops at most one event;
// the bounded pop timeout is where cancellation is observed. Malformed items
// are logged and dropped, persistence failures are logged and the loop moves
// on to the next pop. No error is fatal.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Msg("worker ready; waiting for events")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := w.queue.Pop(ctx, w.popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("queue pop failed")
			// Avoid a hot loop when the queue is down.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if payload == nil {
			continue
		}

		w.process(ctx, payload)
	}
}

func (w *Worker) process(ctx context.Context, payload []byte) {
	start := time.Now()

	var ev event.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		metrics.MalformedPayloads.Inc()
		w.log.Warn().Err(err).Msg("bad payload, dropping")
		return
	}

	cs := w.extractor.Extract(ev, w.memory)

	eventID, err := w.sink.SaveEvent(ctx, ev, cs)
	if err != nil {
		metrics.PersistFailures.Inc()
		w.log.Error().Err(err).Str("raw_sig", ev.RawSig).Msg("persist failed")
		return
	}

	metrics.EventsProcessed.Inc()
	for _, c := range cs {
		metrics.ClaimsExtracted.WithLabelValues(string(c.Type)).Inc()
	}
	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())

	w.log.Debug().
		Int64("event_id", eventID).
		Int("claims", len(cs)).
		Str("kind", string(ev.Message.Kind)).
		Msg("event processed")
}
