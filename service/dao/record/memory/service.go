package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/criteria"
	"github.com/viant/procureflow/service/dao/record"
)

// Service keeps records in memory.
type Service struct {
	mu      sync.RWMutex
	records map[string]*model.Record
}

var _ record.Service = (*Service)(nil)

// Load returns a copy of the stored record.
func (s *Service) Load(_ context.Context, id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, record.NotFoundError(id)
	}
	return rec.Clone(), nil
}

// Save compares and sets the stored revision.
func (s *Service) Save(_ context.Context, rec *model.Record, expectedRevision int64) error {
	if err := record.Check(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var actual int64
	if prev, ok := s.records[rec.ID]; ok {
		actual = prev.Revision
	}
	if actual != expectedRevision {
		return record.StaleError(rec.ID, expectedRevision, actual)
	}
	rec.Revision = expectedRevision + 1
	s.records[rec.ID] = rec.Clone()
	return nil
}

// List returns matching records ordered by creation time then id.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret []*model.Record
	for _, rec := range s.records {
		if criteria.Match(record.Fields(rec), parameters) {
			ret = append(ret, rec.Clone())
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].CreatedAt.Before(ret[j].CreatedAt)
		}
		return ret[i].ID < ret[j].ID
	})
	return ret, nil
}

// New creates an empty in-memory record service.
func New() *Service {
	return &Service{records: map[string]*model.Record{}}
}
