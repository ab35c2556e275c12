// Package messaging defines the queue abstraction used as the post-commit
// outbox: transitions publish after their write succeeds and consumers
// acknowledge or reject each delivery independently.
package messaging

import (
	"context"
)

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack reports a failure; the queue may redeliver the message
	Nack(err error) error
}
