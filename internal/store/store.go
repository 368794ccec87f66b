// Package store persists events and their derived claims.
package store

import (
	"context"

	"github.com/claimpipe/claimpipe/internal/claims"
	"github.com/claimpipe/claimpipe/internal/event"
)

// Sink durably records one event and its claims as a single atomic unit and
// returns the generated event id. Readers never observe an event without its
// claims or claims without their event.
type Sink interface {
	SaveEvent(ctx context.Context, ev event.Event, cs []claims.Claim) (int64, error)
}

// LastCommitment is the most recent commitment persisted for one actor and
// verb, used to warm the worker's in-memory commitment cache at startup.
type LastCommitment struct {
	Actor      string
	Commitment claims.Commitment
}
