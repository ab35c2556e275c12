// Package registry stores versioned workflow definitions and resolves the
// single active definition for a (tenant, record type) pair.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/procureflow/internal/clock"
	"github.com/viant/procureflow/internal/idgen"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/criteria"
	"github.com/viant/procureflow/service/dao/store"
	"go.uber.org/zap"
)

// Service is the workflow definition registry.
type Service struct {
	mu     sync.Mutex
	dao    dao.Service[string, model.Definition]
	fs     afs.Service
	logger *zap.Logger
}

// Key returns the storage key of one definition version.
func Key(id string, version int) string {
	return id + "@" + strconv.Itoa(version)
}

// ResolveActive returns the active definition for tenantID and recordType.
// It fails with model.ErrNoActiveWorkflow when none exists; no fallback
// definition is ever synthesized.
func (s *Service) ResolveActive(ctx context.Context, tenantID string, recordType model.RecordType) (*model.Definition, error) {
	versions, err := s.Versions(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Active {
			return versions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: tenant %s, record type %s", model.ErrNoActiveWorkflow, tenantID, recordType)
}

// Get returns an exact definition version.
func (s *Service) Get(ctx context.Context, id string, version int) (*model.Definition, error) {
	ret, err := s.dao.Load(ctx, Key(id, version))
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", model.ErrDefinitionNotFound, Key(id, version))
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Versions returns every stored version for tenantID and recordType,
// oldest first.
func (s *Service) Versions(ctx context.Context, tenantID string, recordType model.RecordType) ([]*model.Definition, error) {
	ret, err := s.dao.List(ctx,
		dao.NewParameter(dao.ParamTenantID, tenantID),
		dao.NewParameter(dao.ParamRecordType, string(recordType)))
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Version < ret[j].Version })
	return ret, nil
}

// Save validates definition and stores it as a new version. Invalid
// definitions fail with a *model.DefinitionError and write nothing. Saving an
// active definition deactivates the previously active version, which stays
// stored so records bound to it keep resolving.
func (s *Service) Save(ctx context.Context, definition *model.Definition) (*model.Definition, error) {
	if definition == nil {
		return nil, &model.DefinitionError{Issues: []error{dao.ErrNilEntity}}
	}
	if issues := definition.Validate(); len(issues) > 0 {
		return nil, &model.DefinitionError{Issues: issues}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	versions, err := s.Versions(ctx, definition.TenantID, definition.RecordType)
	if err != nil {
		return nil, err
	}
	candidate := definition.Clone()
	candidate.Version = 1
	var active *model.Definition
	if count := len(versions); count > 0 {
		latest := versions[count-1]
		if candidate.ID != "" && candidate.ID != latest.ID {
			return nil, &model.DefinitionError{Issues: []error{
				fmt.Errorf("id %s does not match %s already registered for tenant %s, record type %s",
					candidate.ID, latest.ID, candidate.TenantID, candidate.RecordType)}}
		}
		candidate.ID = latest.ID
		candidate.Version = latest.Version + 1
		for _, version := range versions {
			if version.Active {
				active = version
			}
		}
	}
	if candidate.ID == "" {
		candidate.ID = idgen.WithPrefix("WF")
	} else if len(versions) == 0 {
		if err = s.checkUnclaimed(ctx, candidate); err != nil {
			return nil, err
		}
	}
	candidate.CreatedAt = clock.Now()

	if err = s.dao.Save(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to save definition %s: %w", Key(candidate.ID, candidate.Version), err)
	}
	if candidate.Active && active != nil {
		s.logChange(active, candidate)
		active.Active = false
		if err = s.dao.Save(ctx, active); err != nil {
			return nil, fmt.Errorf("failed to deactivate definition %s: %w", Key(active.ID, active.Version), err)
		}
	}
	s.logger.Info("definition saved",
		zap.String("tenant_id", candidate.TenantID),
		zap.String("record_type", string(candidate.RecordType)),
		zap.String("definition_id", candidate.ID),
		zap.Int("version", candidate.Version),
		zap.Bool("active", candidate.Active))
	return candidate.Clone(), nil
}

// checkUnclaimed rejects an explicit id already registered for another
// (tenant, record type) pair.
func (s *Service) checkUnclaimed(ctx context.Context, candidate *model.Definition) error {
	owner, err := s.dao.Load(ctx, Key(candidate.ID, 1))
	if errors.Is(err, dao.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check definition id %s: %w", candidate.ID, err)
	}
	return &model.DefinitionError{Issues: []error{
		fmt.Errorf("id %s is already registered for tenant %s, record type %s",
			candidate.ID, owner.TenantID, owner.RecordType)}}
}

// Activate makes an existing version the active one.
func (s *Service) Activate(ctx context.Context, id string, version int) (*model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, err := s.Get(ctx, id, version)
	if err != nil {
		return nil, err
	}
	versions, err := s.Versions(ctx, target.TenantID, target.RecordType)
	if err != nil {
		return nil, err
	}
	target.Active = true
	if err = s.dao.Save(ctx, target); err != nil {
		return nil, err
	}
	for _, other := range versions {
		if other.Version == version || !other.Active {
			continue
		}
		s.logChange(other, target)
		other.Active = false
		if err = s.dao.Save(ctx, other); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// Load reads a YAML definition from URL; a missing extension defaults to .yaml.
func (s *Service) Load(ctx context.Context, URL string) (*model.Definition, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition from %s: %w", URL, err)
	}
	ret, err := DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse definition from %s: %w", URL, err)
	}
	return ret, nil
}

func (s *Service) logChange(from, to *model.Definition) {
	if !s.logger.Core().Enabled(zap.InfoLevel) {
		return
	}
	patch, stats, err := Diff(from, to)
	if err != nil {
		s.logger.Warn("failed to diff definitions", zap.Error(err))
		return
	}
	s.logger.Info("active definition replaced",
		zap.String("definition_id", to.ID),
		zap.Int("from_version", from.Version),
		zap.Int("to_version", to.Version),
		zap.Int("added", stats.Added),
		zap.Int("removed", stats.Removed),
		zap.String("diff", patch))
}

func fields(definition *model.Definition) criteria.Field {
	return func(name string) (string, bool) {
		switch name {
		case dao.ParamTenantID:
			return definition.TenantID, true
		case dao.ParamRecordType:
			return string(definition.RecordType), true
		}
		return "", false
	}
}

// New creates a registry backed by an in-memory store unless WithDAO is given.
func New(options ...Option) *Service {
	ret := &Service{fs: afs.New(), logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.dao == nil {
		ret.dao = store.NewMemoryStore[string, model.Definition](
			func(d *model.Definition) string { return Key(d.ID, d.Version) },
			store.WithFields[string, model.Definition](fields),
			store.WithClone[string, model.Definition](func(d *model.Definition) *model.Definition { return d.Clone() }),
		)
	}
	return ret
}
