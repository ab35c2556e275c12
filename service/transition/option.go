package transition

import (
	"github.com/viant/procureflow/metrics"
	"github.com/viant/procureflow/service/event"
	"go.uber.org/zap"
)

// Option customises the engine.
type Option func(s *Service)

// WithEvents publishes an Event after every commit and a Notification after
// every rejection.
func WithEvents(events *event.Service) Option {
	return func(s *Service) { s.events = events }
}

// WithMetrics records transition counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}
