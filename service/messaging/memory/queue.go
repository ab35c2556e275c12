package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/procureflow/internal/idgen"
	"github.com/viant/procureflow/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
	DeadLetter  bool          `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int           `json:"buffer" yaml:"buffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 256,
	}
}

// Message is a single delivery of a payload.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempt   int
	mu        sync.Mutex
	processed bool
	lastErr   error
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// ID returns the message id, stable across redeliveries.
func (m *Message[T]) ID() string { return m.id }

// Attempt returns the zero-based delivery attempt.
func (m *Message[T]) Attempt() int { return m.attempt }

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %s already processed", m.id)
	}
	m.processed = true
	return nil
}

// Nack schedules a redelivery after RetryDelay while attempts remain,
// otherwise moves the message to the dead letter list.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %s already processed", m.id)
	}
	m.processed = true
	m.lastErr = err
	if m.attempt < m.queue.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: m.queue, attempt: m.attempt + 1}
		m.queue.pending.Add(1)
		time.AfterFunc(m.queue.config.RetryDelay, func() {
			defer m.queue.pending.Done()
			m.queue.messages <- retry
		})
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*Message[T]
	config   Config
	dlqMu    sync.Mutex
	pending  sync.WaitGroup
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("cannot publish nil payload")
	}
	msg := &Message[T]{id: idgen.New(), payload: *t, queue: q}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// WaitRetries blocks until every scheduled redelivery is back in the queue.
func (q *Queue[T]) WaitRetries() {
	q.pending.Wait()
}

// DeadLetters returns the payloads that exhausted their retries.
func (q *Queue[T]) DeadLetters() []T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	ret := make([]T, 0, len(q.dlq))
	for _, msg := range q.dlq {
		ret = append(ret, msg.payload)
	}
	return ret
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
