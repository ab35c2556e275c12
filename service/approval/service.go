package approval

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/procureflow/internal/clock"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/record"
	"github.com/viant/procureflow/service/transition"
)

// Definitions returns the definition version a record is bound to.
type Definitions interface {
	Get(ctx context.Context, id string, version int) (*model.Definition, error)
}

// Transitions records decisions.
type Transitions interface {
	Approve(ctx context.Context, request *transition.Request) (*transition.Result, error)
	Reject(ctx context.Context, request *transition.Request) (*transition.Result, error)
}

// Service lists pending work and applies decisions.
type Service struct {
	definitions Definitions
	records     record.Service
	transitions Transitions
}

// Pending returns the IN_STAGE records of tenantID whose current stage lets
// actor approve or reject, oldest first.
func (s *Service) Pending(ctx context.Context, tenantID string, actor model.Actor) ([]*Item, error) {
	records, err := s.records.List(ctx, dao.NewParameter(dao.ParamTenantID, tenantID))
	if err != nil {
		return nil, err
	}
	definitions := map[string]*model.Definition{}
	now := clock.Now()
	var ret []*Item
	for _, rec := range records {
		if rec.Phase != model.PhaseInStage {
			continue
		}
		key := fmt.Sprintf("%s@%d", rec.DefinitionID, rec.DefinitionVersion)
		definition, ok := definitions[key]
		if !ok {
			if definition, err = s.definitions.Get(ctx, rec.DefinitionID, rec.DefinitionVersion); err != nil {
				return nil, err
			}
			definitions[key] = definition
		}
		stage := definition.Stage(rec.StageKey)
		if stage == nil || !stage.Allows(actor.Role) || (!stage.CanApprove && !stage.CanReject) {
			continue
		}
		ret = append(ret, &Item{
			RecordID:   rec.ID,
			TenantID:   rec.TenantID,
			RecordType: rec.RecordType,
			StageKey:   stage.Key,
			StageName:  stage.Name,
			Status:     rec.Status,
			GroupKey:   rec.GroupKey,
			PartnerID:  rec.PartnerID,
			Revision:   rec.Revision,
			CanApprove: stage.CanApprove,
			CanReject:  stage.CanReject,
			WaitingFor: now.Sub(rec.UpdatedAt),
		})
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].WaitingFor > ret[j].WaitingFor })
	return ret, nil
}

// Decide applies decision through the transition engine.
func (s *Service) Decide(ctx context.Context, decision *Decision) (*transition.Result, error) {
	if decision == nil || decision.RecordID == "" {
		return nil, fmt.Errorf("%w: decision requires a record id", model.ErrInvalidTransition)
	}
	request := &transition.Request{
		RecordID:         decision.RecordID,
		Actor:            decision.Actor,
		ExpectedRevision: decision.Revision,
	}
	if decision.Approved {
		return s.transitions.Approve(ctx, request)
	}
	request.ReasonCode = decision.ReasonCode
	request.Remarks = decision.Remarks
	return s.transitions.Reject(ctx, request)
}

// New creates an approval worklist service.
func New(definitions Definitions, records record.Service, transitions Transitions) *Service {
	return &Service{definitions: definitions, records: records, transitions: transitions}
}
