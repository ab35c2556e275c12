package procureflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/procureflow/service/dao/record"
	"github.com/viant/procureflow/service/fanout"
	"github.com/viant/procureflow/service/logistics"
	"github.com/viant/procureflow/service/registry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig sets the configuration; DefaultConfig is used otherwise.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecords sets the record store, overriding Config.Store.
func WithRecords(records record.Service) Option {
	return func(s *Service) { s.records = records }
}

// WithRegistry sets the definition registry.
func WithRegistry(definitions *registry.Service) Option {
	return func(s *Service) { s.registry = definitions }
}

// WithMetricsRegistry registers engine metrics with registerer.
func WithMetricsRegistry(registerer prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = registerer }
}

// WithArtifactCreator replaces the default aggregate order creator used by fan-out.
func WithArtifactCreator(creator fanout.ArtifactCreator) Option {
	return func(s *Service) { s.creator = creator }
}

// WithLogistics dispatches approved records through provider.
func WithLogistics(provider logistics.Provider) Option {
	return func(s *Service) { s.provider = provider }
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter. The first successful initialisation wins.
func WithTracingExporter(exporter sdktrace.SpanExporter) Option {
	return func(s *Service) { s.exporter = exporter }
}
