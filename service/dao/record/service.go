// Package record defines persistence for workflow records. Every write is a
// compare-and-set on the record revision.
package record

import (
	"context"
	"fmt"

	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/criteria"
)

// Service persists records.
type Service interface {
	// Load returns model.ErrRecordNotFound when id is unknown.
	Load(ctx context.Context, id string) (*model.Record, error)

	// Save writes rec when the stored revision equals expectedRevision; zero
	// means the record must not exist yet. On success rec.Revision is set to
	// expectedRevision+1. A mismatch fails with model.ErrStaleState.
	Save(ctx context.Context, rec *model.Record, expectedRevision int64) error

	// List returns records matching the dao.Param* parameters, oldest first.
	List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Record, error)
}

// Fields exposes record attributes to criteria.Match.
func Fields(rec *model.Record) criteria.Field {
	return func(name string) (string, bool) {
		switch name {
		case dao.ParamTenantID:
			return rec.TenantID, true
		case dao.ParamRecordType:
			return string(rec.RecordType), true
		case dao.ParamGroupKey:
			return rec.GroupKey, true
		case dao.ParamPartnerID:
			return rec.PartnerID, true
		case dao.ParamStatus:
			return string(rec.Status), true
		case dao.ParamIDs:
			return rec.ID, true
		}
		return "", false
	}
}

// Check validates rec before a write.
func Check(rec *model.Record) error {
	if rec == nil {
		return dao.ErrNilEntity
	}
	if rec.ID == "" {
		return dao.ErrInvalidID
	}
	return nil
}

// StaleError reports a failed revision compare.
func StaleError(id string, expected, actual int64) error {
	return fmt.Errorf("%w: record %s is at revision %d, expected %d", model.ErrStaleState, id, actual, expected)
}

// NotFoundError reports an unknown record id.
func NotFoundError(id string) error {
	return fmt.Errorf("%w: %s", model.ErrRecordNotFound, id)
}
