package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service.
// It keeps entities of type *T mapped by a comparable key K obtained from the
// supplied keySelector function.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
	fields      func(*T) criteria.Field
	clone       func(*T) *T
}

// Option customises a MemoryStore.
type Option[K comparable, T any] func(s *MemoryStore[K, T])

// WithFields enables List parameter filtering through the entity fields.
func WithFields[K comparable, T any](fields func(*T) criteria.Field) Option[K, T] {
	return func(s *MemoryStore[K, T]) { s.fields = fields }
}

// WithClone copies entities on the way in and out so callers never share
// state with the store.
func WithClone[K comparable, T any](clone func(*T) *T) Option[K, T] {
	return func(s *MemoryStore[K, T]) { s.clone = clone }
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key (usually the ID field) from a value.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, options ...Option[K, T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		clone:       func(v *T) *T { return v },
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Save stores or overwrites an entity.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = s.clone(v)
	return nil
}

// Load returns an entity by key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	return s.clone(v), nil
}

// Delete removes an entity.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	delete(s.records, key)
	for i, candidate := range s.order {
		if candidate == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns stored entities matching parameters in insertion order.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, key := range s.order {
		v := s.records[key]
		if s.fields != nil && !criteria.Match(s.fields(v), parameters) {
			continue
		}
		out = append(out, s.clone(v))
	}
	return out, nil
}
