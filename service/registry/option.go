package registry

import (
	"github.com/viant/afs"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"go.uber.org/zap"
)

// Option customises the registry.
type Option func(s *Service)

// WithDAO replaces the in-memory definition storage. The DAO must key
// definitions by Key(definition.ID, definition.Version).
func WithDAO(definitions dao.Service[string, model.Definition]) Option {
	return func(s *Service) { s.dao = definitions }
}

// WithFileSystem sets the afs service used by Load.
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}
