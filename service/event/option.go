package event

import (
	"github.com/viant/procureflow/service/messaging/memory"
	"go.uber.org/zap"
)

type Option func(s *Service)

// WithQueueConfig sets the memory queue configuration per event type name.
func WithQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.newQueueConfig = newConfig
	}
}

// WithLogger sets the logger handed to listeners.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
