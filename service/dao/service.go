package dao

import (
	"context"
)

// Service is a generic keyed repository used for definitions and downstream
// artifacts. Records use record.Service, which adds revision checks.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	// Load returns ErrNotFound when no entity exists under id.
	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
