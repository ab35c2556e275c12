package event

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Handler processes one event; a returned error Nacks the delivery.
type Handler[T any] func(ctx context.Context, event *Event[T]) error

// Listener drains a publisher queue on a background goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   Handler[T]
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      sync.WaitGroup
}

func NewListener[T any](publisher *Publisher[T], handler Handler[T], logger *zap.Logger) *Listener[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener[T]{publisher: publisher, handler: handler, logger: logger}
}

// Start consumes until ctx is done or Stop is called.
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done.Add(1)
	go func() {
		defer l.done.Done()
		for {
			msg, err := l.publisher.queue.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				l.logger.Warn("failed to consume event", zap.Error(err))
				continue
			}
			if err = l.handler(ctx, msg.T()); err != nil {
				l.logger.Info("event handler failed", zap.String("event_id", msg.T().ID), zap.Error(err))
				_ = msg.Nack(err)
				continue
			}
			_ = msg.Ack()
		}
	}()
}

// Stop cancels consumption and waits for the goroutine to exit.
func (l *Listener[T]) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.done.Wait()
}
