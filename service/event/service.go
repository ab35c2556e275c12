// Package event publishes typed domain events through per-type memory queues.
package event

import (
	"context"
	"reflect"
	"sync"

	"github.com/viant/procureflow/service/messaging/memory"
	"go.uber.org/zap"
)

// Service owns one publisher and at most one listener per payload type.
type Service struct {
	typedPublishers map[reflect.Type]any
	typedListeners  map[reflect.Type]any
	mux             sync.RWMutex
	newQueueConfig  func(name string) memory.Config
	logger          *zap.Logger
}

func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]any),
		newQueueConfig:  func(string) memory.Config { return memory.DefaultConfig() },
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	rType := reflect.TypeOf((*T)(nil)).Elem()
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// PublisherOf returns the publisher for payload type T, creating it on first use.
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok := s.typedPublishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](memory.NewQueue[Event[T]](s.newQueueConfig(key.String())))
	s.typedPublishers[key] = publisher
	return publisher
}

// SetListenerOf replaces the listener for payload type T.
func SetListenerOf[T any](ctx context.Context, s *Service, handler Handler[T]) *Listener[T] {
	key := keyOf[T]()
	publisher := PublisherOf[T](s)
	s.mux.Lock()
	previous, ok := s.typedListeners[key]
	listener := NewListener[T](publisher, handler, s.logger)
	s.typedListeners[key] = listener
	s.mux.Unlock()
	if ok {
		previous.(*Listener[T]).Stop()
	}
	listener.Start(ctx)
	return listener
}

// Close stops every listener.
func (s *Service) Close() {
	s.mux.Lock()
	listeners := s.typedListeners
	s.typedListeners = make(map[reflect.Type]any)
	s.mux.Unlock()
	for _, listener := range listeners {
		if stopper, ok := listener.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
}
