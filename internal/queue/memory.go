package queue

import (
	"context"
	"errors"

	"feedback-translator/internal/shared/metrics"
	"feedback-translator/internal/shared/telemetry"
)

// ErrQueueFull is returned when the in-process buffer has no room.
var ErrQueueFull = errors.New("queue buffer full")

// MemoryClient is an in-process queue backed by a buffered channel. It is the
// default dispatch path when no SQS queue is configured: the API binary runs a
// consumer goroutine draining Receive.
type MemoryClient struct {
	ch chan Message
}

// NewMemoryClient builds an in-process queue with the given buffer size.
func NewMemoryClient(buffer int) *MemoryClient {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryClient{ch: make(chan Message, buffer)}
}

// Send enqueues without blocking. A full buffer fails fast instead of stalling
// the request path.
func (m *MemoryClient) Send(ctx context.Context, msg Message) error {
	select {
	case m.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		metrics.IncJobsDropped()
		telemetry.Error("queue.full", map[string]any{
			"analysis_id": msg.AnalysisID,
			"buffer":      cap(m.ch),
		})
		return ErrQueueFull
	}
}

// Receive blocks until a message arrives or the context is canceled.
func (m *MemoryClient) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

var _ Client = (*MemoryClient)(nil)
