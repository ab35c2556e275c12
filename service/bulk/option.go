package bulk

import (
	"github.com/viant/procureflow/metrics"
	"go.uber.org/zap"
)

// DefaultWorkers bounds concurrent transitions per bulk call.
const DefaultWorkers = 8

// Option customises the Service.
type Option func(s *Service)

// WithWorkers sets the worker pool size.
func WithWorkers(workers int) Option {
	return func(s *Service) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithMetrics records outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}
