package queue

import "context"

// Client enqueues job messages for asynchronous processing.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
