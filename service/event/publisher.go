package event

import (
	"context"

	"github.com/viant/procureflow/internal/clock"
	"github.com/viant/procureflow/internal/idgen"
	"github.com/viant/procureflow/service/messaging"
)

// Publisher publishes events of one payload type.
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps the event id and creation time and enqueues it.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if event.ID == "" {
		event.ID = idgen.New()
	}
	event.CreatedAt = clock.Now()
	return p.queue.Publish(ctx, event)
}

// Queue returns the underlying queue for consumers that acknowledge
// deliveries themselves.
func (p *Publisher[T]) Queue() messaging.Queue[Event[T]] {
	return p.queue
}
