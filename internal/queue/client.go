package queue

import "context"

// Client dispatches translation-job messages to a queue backend.
//
// Delivery is at-least-once: consumers must tolerate duplicate messages for
// the same analysis id. Send returning an error means the message was not
// accepted and the caller decides what happens to the job row.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
