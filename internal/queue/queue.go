// Package queue carries serialized events from ingestion to the worker over
// a durable at-least-once FIFO channel.
package queue

import (
	"context"
	"time"
)

// Queue is the transport between the gateway and the worker. Push appends one
// serialized event; Pop blocks for at most the given timeout and returns
// (nil, nil) when nothing arrived, so callers can observe shutdown between
// waits.
type Queue interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}
