// Package progress keeps running counters for a batch operation (bulk
// approve, bulk reject, fan-out). The tracker travels in the context so
// every worker can report without a shared registry.
package progress

import (
	"context"
	"sync"
	"time"
)

// Delta is an incremental change applied by a worker. Fields are signed.
type Delta struct {
	Total     int
	Succeeded int
	Failed    int
	Running   int
}

// Progress holds aggregated counters for one batch. It is safe for
// concurrent use.
type Progress struct {
	Operation string
	StartedAt time.Time

	Total     int
	Succeeded int
	Failed    int
	Running   int

	mu       sync.Mutex
	onChange func(Snapshot)
}

// Snapshot is an immutable copy of the counters.
type Snapshot struct {
	Operation string
	StartedAt time.Time
	Total     int
	Succeeded int
	Failed    int
	Running   int
}

// Done reports whether every item has finished.
func (s Snapshot) Done() bool {
	return s.Running == 0 && s.Succeeded+s.Failed >= s.Total
}

// Update applies d and then calls the onChange callback, outside the lock,
// with the resulting snapshot.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.Total += d.Total
	p.Succeeded += d.Succeeded
	p.Failed += d.Failed
	p.Running += d.Running
	snapshot := p.snapshot()
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() Snapshot {
	return Snapshot{
		Operation: p.Operation,
		StartedAt: p.StartedAt,
		Total:     p.Total,
		Succeeded: p.Succeeded,
		Failed:    p.Failed,
		Running:   p.Running,
	}
}

// OnChange replaces the update callback; nil disables it.
func (p *Progress) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

type trackerKey struct{}

// WithNewTracker derives a context carrying a fresh tracker for operation.
func WithNewTracker(ctx context.Context, operation string, onChange func(Snapshot)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tracker := &Progress{Operation: operation, StartedAt: time.Now(), onChange: onChange}
	return context.WithValue(ctx, trackerKey{}, tracker), tracker
}

// FromContext returns the tracker carried by ctx, if any.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tracker, ok := ctx.Value(trackerKey{}).(*Progress)
	return tracker, ok
}

// UpdateCtx applies d to the tracker in ctx; it is a no-op without one.
func UpdateCtx(ctx context.Context, d Delta) {
	if tracker, ok := FromContext(ctx); ok {
		tracker.Update(d)
	}
}
