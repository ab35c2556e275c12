package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/criteria"
	"github.com/viant/procureflow/service/dao/record"
	"go.uber.org/zap"
)

// Service stores one JSON document per record under basePath.
type Service struct {
	basePath string
	fs       afs.Service
	logger   *zap.Logger
	mu       sync.Mutex
}

var _ record.Service = (*Service)(nil)

// Option customises the service.
type Option func(s *Service)

// WithLogger sets the logger used to report unreadable files.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithFileSystem replaces the default afs service.
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// Load reads a record.
func (s *Service) Load(ctx context.Context, id string) (*model.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*model.Record, error) {
	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if record exists: %w", err)
	}
	if !exists {
		return nil, record.NotFoundError(id)
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

// Save writes rec when the stored revision equals expectedRevision.
func (s *Service) Save(ctx context.Context, rec *model.Record, expectedRevision int64) error {
	if err := record.Check(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var actual int64
	prev, err := s.load(ctx, rec.ID)
	switch {
	case err == nil:
		actual = prev.Revision
	case !isNotFound(err):
		return err
	}
	if actual != expectedRevision {
		return record.StaleError(rec.ID, expectedRevision, actual)
	}

	stored := rec.Clone()
	stored.Revision = expectedRevision + 1
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	filePath := s.recordPath(rec.ID)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record to file %s: %w", filePath, err)
	}
	rec.Revision = stored.Revision
	return nil
}

// List reads every record file and returns the matching ones.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Record, error) {
	objects, err := s.fs.List(ctx, s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list record files: %w", err)
	}
	var ret []*model.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("skipping unreadable record file", zap.String("url", object.URL()), zap.Error(err))
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.Warn("skipping malformed record file", zap.String("url", object.URL()), zap.Error(err))
			continue
		}
		if !criteria.Match(record.Fields(&rec), parameters) {
			continue
		}
		ret = append(ret, &rec)
	}
	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].CreatedAt.Before(ret[j].CreatedAt)
		}
		return ret[i].ID < ret[j].ID
	})
	return ret, nil
}

func (s *Service) recordPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrRecordNotFound)
}

// New creates a filesystem record service rooted at basePath.
func New(ctx context.Context, basePath string, options ...Option) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	ret := &Service{fs: afs.New(), logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	exists, _ := ret.fs.Exists(ctx, basePath)
	if !exists {
		if err := ret.fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	ret.basePath = url.Normalize(basePath, file.Scheme)
	return ret, nil
}
