package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier. Tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier.
func New() string { return NewFunc() }

// WithPrefix returns a new identifier prefixed with kind, e.g. "AO-<uuid>".
func WithPrefix(kind string) string { return kind + "-" + NewFunc() }

// Sequential installs a deterministic generator producing prefix-1, prefix-2,
// and returns a restore function.
func Sequential(prefix string) func() {
	prev := NewFunc
	var counter int64
	NewFunc = func() string {
		return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&counter, 1))
	}
	return func() { NewFunc = prev }
}
