package fanout

import (
	"github.com/viant/procureflow/metrics"
	"go.uber.org/zap"
)

// DefaultWorkers bounds concurrently processed partitions.
const DefaultWorkers = 4

// Option customises the Service.
type Option func(s *Service)

// WithTenants enables fan-out for tenants; "*" enables every tenant.
func WithTenants(tenants ...string) Option {
	return func(s *Service) {
		for _, tenant := range tenants {
			s.tenants[tenant] = true
		}
	}
}

// WithCreator replaces the default aggregate order creator.
func WithCreator(creator ArtifactCreator) Option {
	return func(s *Service) { s.creator = creator }
}

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
