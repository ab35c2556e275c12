// Package transition implements the per-record stage state machine: submit,
// approve, reject, resubmit and post-approval fulfillment progress. Every
// write is a compare-and-set on the record revision; validation failures
// mutate nothing.
package transition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/viant/procureflow/internal/clock"
	"github.com/viant/procureflow/internal/idgen"
	"github.com/viant/procureflow/metrics"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/policy"
	"github.com/viant/procureflow/service/dao/record"
	"github.com/viant/procureflow/service/event"
	"github.com/viant/procureflow/tracing"
	"go.uber.org/zap"
)

// publishTimeout bounds how long a commit waits on a full event queue.
const publishTimeout = time.Second

// Definitions resolves workflow definitions.
type Definitions interface {
	ResolveActive(ctx context.Context, tenantID string, recordType model.RecordType) (*model.Definition, error)
	Get(ctx context.Context, id string, version int) (*model.Definition, error)
}

// Service is the stage transition engine.
type Service struct {
	definitions Definitions
	records     record.Service
	events      *event.Service
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NextStage returns the stage following currentStageKey by ascending order,
// or nil. Optional stages are never skipped.
func NextStage(definition *model.Definition, currentStageKey string) *model.Stage {
	return definition.NextStage(currentStageKey)
}

// Load returns a record.
func (s *Service) Load(ctx context.Context, id string) (*model.Record, error) {
	return s.records.Load(ctx, id)
}

// Submit creates a record positioned at the lowest-order stage of the active
// definition. A missing active definition is a hard stop.
func (s *Service) Submit(ctx context.Context, request *SubmitRequest) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "transition.submit", tracing.KindInternal)
	span.WithAttributes(map[string]string{tracing.AttrTenantID: request.TenantID, tracing.AttrAction: string(model.ActionSubmit)})
	defer func() { s.observe(span, model.ActionSubmit, request.RecordID, err) }()

	definition, err := s.definitions.ResolveActive(ctx, request.TenantID, request.RecordType)
	if err != nil {
		return nil, err
	}
	rec := s.newRecord(definition, request.RecordID, request.RequesterID, request.PartnerID, request.GroupKey)
	if !model.CanTransition("", rec.Status) {
		return nil, fmt.Errorf("%w: cannot submit as %s", model.ErrInvalidStatusTransition, rec.Status)
	}
	rec.Audit = append(rec.Audit, audit(rec, model.ActionSubmit, model.Actor{ID: request.RequesterID, Role: model.RoleRequester}, "", ""))
	if err = s.records.Save(ctx, rec, 0); err != nil {
		return nil, err
	}
	s.publish(ctx, rec, model.ActionSubmit, "", model.Actor{ID: request.RequesterID, Role: model.RoleRequester})
	return &Result{Record: rec}, nil
}

func (s *Service) newRecord(definition *model.Definition, id, requesterID, partnerID, groupKey string) *model.Record {
	if id == "" {
		id = idgen.New()
	}
	now := clock.Now()
	return &model.Record{
		ID:                id,
		TenantID:          definition.TenantID,
		RecordType:        definition.RecordType,
		DefinitionID:      definition.ID,
		DefinitionVersion: definition.Version,
		Phase:             model.PhaseInStage,
		StageKey:          definition.InitialStage().Key,
		Status:            definition.SubmissionStatus(),
		RequesterID:       requesterID,
		PartnerID:         partnerID,
		GroupKey:          groupKey,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Approve approves the record at its current stage. A terminal stage moves
// the record to APPROVED_TERMINAL; otherwise it advances to the next stage.
func (s *Service) Approve(ctx context.Context, request *Request) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "transition.approve", tracing.KindInternal)
	defer func() { s.observe(span, model.ActionApprove, request.RecordID, err) }()

	rec, definition, stage, err := s.actionable(ctx, request, model.ActionApprove)
	if err != nil {
		return nil, err
	}
	span.WithAttributes(map[string]string{tracing.AttrRecordID: rec.ID, tracing.AttrStage: stage.Key})
	if !stage.CanApprove {
		return nil, fmt.Errorf("%w: stage %s does not allow approval", model.ErrInvalidTransition, stage.Key)
	}

	revision := rec.Revision
	status := definition.ApprovalStatus(stage)
	if !model.CanTransition(rec.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, rec.Status, status)
	}
	result = &Result{Record: rec, FromStage: stage.Key}
	if stage.Terminal {
		rec.Phase = model.PhaseApprovedTerminal
		result.Completed = true
	} else {
		next := definition.NextStage(stage.Key)
		if next == nil {
			return nil, fmt.Errorf("%w: stage %s has no successor", model.ErrInvalidTransition, stage.Key)
		}
		rec.StageKey = next.Key
	}
	rec.Status = status
	rec.Audit = append(rec.Audit, audit(rec, model.ActionApprove, request.Actor, "", "", stage.Key))
	if err = s.commit(ctx, rec, revision); err != nil {
		return nil, err
	}
	s.publish(ctx, rec, model.ActionApprove, stage.Key, request.Actor)
	return result, nil
}

// Reject rejects the record at its current stage under the resolved
// rejection policy of that stage.
func (s *Service) Reject(ctx context.Context, request *Request) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "transition.reject", tracing.KindInternal)
	defer func() { s.observe(span, model.ActionReject, request.RecordID, err) }()

	rec, definition, stage, err := s.actionable(ctx, request, model.ActionReject)
	if err != nil {
		return nil, err
	}
	span.WithAttributes(map[string]string{tracing.AttrRecordID: rec.ID, tracing.AttrStage: stage.Key})
	if !stage.CanReject {
		return nil, fmt.Errorf("%w: stage %s does not allow rejection", model.ErrInvalidTransition, stage.Key)
	}
	effective, err := policy.Resolve(definition, stage.Key)
	if err != nil {
		return nil, err
	}
	if err = checkRejection(effective, request.ReasonCode, request.Remarks); err != nil {
		return nil, err
	}
	if !model.CanTransition(rec.Status, effective.RejectedStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, rec.Status, effective.RejectedStatus)
	}

	revision := rec.Revision
	rec.Status = effective.RejectedStatus
	rec.RejectedAtStage = stage.Key
	rec.VisibleTo = append([]model.Role{}, effective.VisibleTo...)
	switch {
	case effective.TerminalOnReject:
		rec.Phase = model.PhaseRejected
	case effective.StopFurtherStages:
	default:
		if next := definition.NextStage(stage.Key); next != nil {
			rec.StageKey = next.Key
		}
	}
	rec.Audit = append(rec.Audit, audit(rec, model.ActionReject, request.Actor, request.ReasonCode, request.Remarks, stage.Key))
	if err = s.commit(ctx, rec, revision); err != nil {
		return nil, err
	}

	result = &Result{
		Record:    rec,
		FromStage: stage.Key,
		Policy:    effective,
		Notify:    effective.Recipients(),
		VisibleTo: rec.VisibleTo,
		Resubmission: &Resubmission{
			Allowed:  effective.AllowResubmission,
			Strategy: effective.ResubmissionStrategy,
			Roles:    effective.ResubmitRoles,
		},
	}
	s.publish(ctx, rec, model.ActionReject, stage.Key, request.Actor)
	s.notify(ctx, rec, result, request)
	return result, nil
}

func checkRejection(effective *model.RejectionPolicy, reasonCode, remarks string) error {
	if reasonCode == "" {
		if effective.RequireReasonCode {
			return model.ErrReasonCodeRequired
		}
	} else if !effective.ReasonCodeAllowed(reasonCode) {
		return fmt.Errorf("%w: %s", model.ErrReasonCodeNotAllowed, reasonCode)
	}
	if effective.RequireRemarks && strings.TrimSpace(remarks) == "" {
		return model.ErrRemarksRequired
	}
	if length := utf8.RuneCountInString(remarks); effective.RemarksMaxLength > 0 && length > effective.RemarksMaxLength {
		return fmt.Errorf("%w: %d characters, limit %d", model.ErrRemarksTooLong, length, effective.RemarksMaxLength)
	}
	return nil
}

// Resubmit re-enters a rejected record into the workflow. Depending on the
// policy of the rejecting stage it restarts the same record under the
// currently active definition or creates a new record linked to it.
func (s *Service) Resubmit(ctx context.Context, request *Request) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "transition.resubmit", tracing.KindInternal)
	defer func() { s.observe(span, model.ActionResubmit, request.RecordID, err) }()

	rec, err := s.records.Load(ctx, request.RecordID)
	if err != nil {
		return nil, err
	}
	if err = checkPreconditions(rec, request); err != nil {
		return nil, err
	}
	if rec.Phase != model.PhaseRejected {
		return nil, fmt.Errorf("%w: record %s is %s, not rejected", model.ErrInvalidTransition, rec.ID, rec.Phase)
	}
	bound, err := s.definitions.Get(ctx, rec.DefinitionID, rec.DefinitionVersion)
	if err != nil {
		return nil, err
	}
	effective, err := policy.Resolve(bound, rec.RejectedAtStage)
	if err != nil {
		return nil, err
	}
	if !mayResubmit(effective, rec, request.Actor) {
		return nil, fmt.Errorf("%w: %s as %s", model.ErrResubmissionNotAllowed, request.Actor.ID, request.Actor.Role)
	}
	active, err := s.definitions.ResolveActive(ctx, rec.TenantID, rec.RecordType)
	if err != nil {
		return nil, err
	}

	if effective.ResubmissionStrategy == model.ResubmitRestartSameRecord {
		revision := rec.Revision
		status := active.SubmissionStatus()
		if !model.CanTransition(rec.Status, status) {
			return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, rec.Status, status)
		}
		rec.DefinitionID, rec.DefinitionVersion = active.ID, active.Version
		rec.Phase = model.PhaseInStage
		rec.StageKey = active.InitialStage().Key
		rec.Status = status
		rec.RejectedAtStage = ""
		rec.VisibleTo = nil
		rec.Resubmissions++
		rec.Audit = append(rec.Audit, audit(rec, model.ActionResubmit, request.Actor, "", ""))
		if err = s.commit(ctx, rec, revision); err != nil {
			return nil, err
		}
		s.publish(ctx, rec, model.ActionResubmit, "", request.Actor)
		return &Result{Record: rec}, nil
	}

	created := s.newRecord(active, "", rec.RequesterID, rec.PartnerID, rec.GroupKey)
	created.ResubmittedFrom = rec.ID
	created.Resubmissions = rec.Resubmissions + 1
	created.Audit = append(created.Audit, audit(created, model.ActionResubmit, request.Actor, "", ""))
	if err = s.records.Save(ctx, created, 0); err != nil {
		return nil, err
	}
	s.publish(ctx, created, model.ActionResubmit, "", request.Actor)
	return &Result{Record: created}, nil
}

func mayResubmit(effective *model.RejectionPolicy, rec *model.Record, actor model.Actor) bool {
	if !effective.AllowResubmission {
		return false
	}
	if !model.RoleSet(effective.ResubmitRoles).Contains(actor.Role) {
		return false
	}
	if actor.Role == model.RoleRequester {
		return actor.ID == rec.RequesterID
	}
	return true
}

// UpdateFulfillment records post-approval progress (linked, in fulfillment,
// dispatched, delivered, cancelled) on an APPROVED_TERMINAL record.
func (s *Service) UpdateFulfillment(ctx context.Context, request *FulfillmentRequest) (result *Result, err error) {
	action := model.ActionFulfillment
	if request.Status == model.StatusLinked {
		action = model.ActionLink
	}
	ctx, span := tracing.StartSpan(ctx, "transition."+string(action), tracing.KindInternal)
	defer func() { s.observe(span, action, request.RecordID, err) }()

	rec, err := s.records.Load(ctx, request.RecordID)
	if err != nil {
		return nil, err
	}
	if request.ExpectedRevision != 0 && request.ExpectedRevision != rec.Revision {
		return nil, record.StaleError(rec.ID, request.ExpectedRevision, rec.Revision)
	}
	if rec.Phase != model.PhaseApprovedTerminal {
		return nil, fmt.Errorf("%w: record %s is %s, not approved", model.ErrInvalidTransition, rec.ID, rec.Phase)
	}
	if !model.CanTransition(rec.Status, request.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidStatusTransition, rec.Status, request.Status)
	}
	revision := rec.Revision
	rec.Status = request.Status
	if request.Status == model.StatusLinked {
		rec.LinkedArtifactID = request.ArtifactID
	}
	rec.Audit = append(rec.Audit, audit(rec, action, request.Actor, "", ""))
	if err = s.commit(ctx, rec, revision); err != nil {
		return nil, err
	}
	s.publish(ctx, rec, action, rec.StageKey, request.Actor)
	return &Result{Record: rec, Completed: true}, nil
}

// actionable loads the record addressed by request and checks that actor may
// act on it at its current stage.
func (s *Service) actionable(ctx context.Context, request *Request, action model.Action) (*model.Record, *model.Definition, *model.Stage, error) {
	rec, err := s.records.Load(ctx, request.RecordID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err = checkPreconditions(rec, request); err != nil {
		return nil, nil, nil, err
	}
	if rec.Phase.Absorbing() {
		return nil, nil, nil, fmt.Errorf("%w: cannot %s record %s in phase %s", model.ErrInvalidTransition, action, rec.ID, rec.Phase)
	}
	definition, err := s.definitions.Get(ctx, rec.DefinitionID, rec.DefinitionVersion)
	if err != nil {
		return nil, nil, nil, err
	}
	stage := definition.Stage(rec.StageKey)
	if stage == nil {
		return nil, nil, nil, fmt.Errorf("%w: record %s is at unknown stage %q", model.ErrInvalidTransition, rec.ID, rec.StageKey)
	}
	if !stage.Allows(request.Actor.Role) {
		return nil, nil, nil, fmt.Errorf("%w: %s at %s", model.ErrRoleNotAllowedAtStage, request.Actor.Role, stage.Key)
	}
	return rec, definition, stage, nil
}

func checkPreconditions(rec *model.Record, request *Request) error {
	if request.ExpectedRevision != 0 && request.ExpectedRevision != rec.Revision {
		return record.StaleError(rec.ID, request.ExpectedRevision, rec.Revision)
	}
	if request.ExpectedStage != "" && (request.ExpectedStage != rec.StageKey || rec.Phase.Absorbing()) {
		return fmt.Errorf("%w: record %s is no longer at stage %s", model.ErrStaleState, rec.ID, request.ExpectedStage)
	}
	return nil
}

func (s *Service) commit(ctx context.Context, rec *model.Record, revision int64) error {
	rec.UpdatedAt = clock.Now()
	return s.records.Save(ctx, rec, revision)
}

func audit(rec *model.Record, action model.Action, actor model.Actor, reasonCode, remarks string, stageKey ...string) model.StageAudit {
	key := rec.StageKey
	if len(stageKey) > 0 {
		key = stageKey[0]
	}
	return model.StageAudit{
		StageKey:   key,
		Action:     action,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		At:         clock.Now(),
		ReasonCode: reasonCode,
		Remarks:    remarks,
		Status:     rec.Status,
	}
}

func (s *Service) observe(span *tracing.Span, action model.Action, recordID string, err error) {
	tracing.EndSpan(span, err)
	if err == nil {
		s.metrics.Transition(string(action), metrics.OutcomeSuccess)
		s.logger.Debug("transition committed", zap.String("record_id", recordID), zap.String("action", string(action)))
		return
	}
	code := model.CodeOf(err)
	s.metrics.Transition(string(action), code)
	fields := []zap.Field{zap.String("record_id", recordID), zap.String("action", string(action)), zap.String("code", code)}
	switch model.KindOf(err) {
	case model.KindInternal:
		s.logger.Error("transition failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("transition refused", append(fields, zap.Error(err))...)
	}
}

func (s *Service) publish(ctx context.Context, rec *model.Record, action model.Action, fromStage string, actor model.Actor) {
	if s.events == nil {
		return
	}
	data := Event{
		RecordID:         rec.ID,
		TenantID:         rec.TenantID,
		RecordType:       rec.RecordType,
		Action:           action,
		FromStage:        fromStage,
		ToStage:          rec.StageKey,
		Phase:            rec.Phase,
		Status:           rec.Status,
		Revision:         rec.Revision,
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		PartnerID:        rec.PartnerID,
		LinkedArtifactID: rec.LinkedArtifactID,
	}
	evt := event.NewEvent(&event.Context{TenantID: rec.TenantID, RecordID: rec.ID, EventType: EventTransition, ActorID: actor.ID}, data)
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := event.PublisherOf[Event](s.events).Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish transition event", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, rec *model.Record, result *Result, request *Request) {
	if s.events == nil {
		return
	}
	data := Notification{
		RecordID:    rec.ID,
		TenantID:    rec.TenantID,
		StageKey:    result.FromStage,
		RequesterID: rec.RequesterID,
		Recipients:  result.Notify,
		VisibleTo:   result.VisibleTo,
		ReasonCode:  request.ReasonCode,
		Remarks:     request.Remarks,
	}
	evt := event.NewEvent(&event.Context{TenantID: rec.TenantID, RecordID: rec.ID, EventType: EventNotification, ActorID: request.Actor.ID}, data)
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := event.PublisherOf[Notification](s.events).Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish rejection notification", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

// New creates the engine over definitions and records.
func New(definitions Definitions, records record.Service, options ...Option) *Service {
	ret := &Service{definitions: definitions, records: records, logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// IsRetryable reports whether err may succeed after re-fetching the record.
func IsRetryable(err error) bool {
	return errors.Is(err, model.ErrStaleState)
}
