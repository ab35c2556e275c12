// Package group expands a selected record into every record sharing its
// group key within the same tenant.
package group

import (
	"context"

	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/record"
)

// Service expands group selections.
type Service struct {
	records record.Service
}

// Expand returns the ids of every record sharing the group key of id, in
// creation order. A record without a group key expands to itself.
func (s *Service) Expand(ctx context.Context, id string) ([]string, error) {
	rec, err := s.records.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.GroupKey == "" {
		return []string{rec.ID}, nil
	}
	members, err := s.records.List(ctx,
		dao.NewParameter(dao.ParamTenantID, rec.TenantID),
		dao.NewParameter(dao.ParamGroupKey, rec.GroupKey))
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(members))
	for _, member := range members {
		ret = append(ret, member.ID)
	}
	return ret, nil
}

// ExpandAll expands every id and removes duplicates, keeping first-seen order.
func (s *Service) ExpandAll(ctx context.Context, ids []string) ([]string, error) {
	seen := map[string]bool{}
	var ret []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		members, err := s.Expand(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			if !seen[member] {
				seen[member] = true
				ret = append(ret, member)
			}
		}
	}
	return ret, nil
}

// New creates a group service.
func New(records record.Service) *Service {
	return &Service{records: records}
}
