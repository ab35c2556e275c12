// Package fanout turns a set of approved records into one downstream
// artifact per fulfillment partner and links every member to it. It runs
// after approvals commit; a failing partition never affects its siblings.
package fanout

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/procureflow/metrics"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/transition"
	"github.com/viant/procureflow/tracing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Records is the subset of the transition engine used to read and relink records.
type Records interface {
	Load(ctx context.Context, id string) (*model.Record, error)
	UpdateFulfillment(ctx context.Context, request *transition.FulfillmentRequest) (*transition.Result, error)
}

// Service runs the fan-out step.
type Service struct {
	records Records
	creator ArtifactCreator
	tenants map[string]bool
	workers int
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Enabled reports whether fan-out is enabled for tenantID.
func (s *Service) Enabled(tenantID string) bool {
	return s.tenants["*"] || s.tenants[tenantID]
}

// CreateLinkedArtifacts partitions the eligible records of request by
// partner and, per partition, creates one artifact and links its members.
func (s *Service) CreateLinkedArtifacts(ctx context.Context, request *Request) (*Outcome, error) {
	if !s.Enabled(request.TenantID) {
		return nil, fmt.Errorf("%w: tenant %s", model.ErrFanOutDisabled, request.TenantID)
	}
	ctx, span := tracing.StartSpan(ctx, "fanout.create", tracing.KindInternal)
	span.WithAttributes(map[string]string{tracing.AttrTenantID: request.TenantID}).WithInt(tracing.AttrCount, len(request.RecordIDs))
	defer tracing.EndSpan(span, nil)

	partitions, skipped := s.partition(ctx, request)
	artifacts := make([]*Artifact, len(partitions))
	failures := make([][]Failure, len(partitions))
	group := errgroup.Group{}
	group.SetLimit(s.workers)
	for i, partition := range partitions {
		group.Go(func() error {
			artifacts[i], failures[i] = s.process(ctx, request, partition)
			return nil
		})
	}
	_ = group.Wait()

	outcome := &Outcome{Artifacts: []*Artifact{}, Failures: []Failure{}, Skipped: skipped}
	for i := range partitions {
		if artifacts[i] != nil {
			outcome.Artifacts = append(outcome.Artifacts, artifacts[i])
		}
		outcome.Failures = append(outcome.Failures, failures[i]...)
	}
	s.logger.Info("fan-out finished",
		zap.String("tenant_id", request.TenantID),
		zap.Int("artifacts", len(outcome.Artifacts)),
		zap.Int("failures", len(outcome.Failures)),
		zap.Int("skipped", len(outcome.Skipped)))
	return outcome, nil
}

// partition groups eligible records by partner, ordered by partner id.
func (s *Service) partition(ctx context.Context, request *Request) ([]*Partition, []Skip) {
	var skipped []Skip
	byPartner := map[string]*Partition{}
	seen := map[string]bool{}
	for _, id := range request.RecordIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, err := s.records.Load(ctx, id)
		if err != nil {
			skipped = append(skipped, Skip{ID: id, Code: model.CodeOf(err)})
			continue
		}
		if code := eligibility(rec, request.TenantID); code != "" {
			skipped = append(skipped, Skip{ID: id, Code: code})
			continue
		}
		partition, ok := byPartner[rec.PartnerID]
		if !ok {
			partition = &Partition{PartnerID: rec.PartnerID}
			byPartner[rec.PartnerID] = partition
		}
		partition.RecordIDs = append(partition.RecordIDs, id)
	}
	ret := make([]*Partition, 0, len(byPartner))
	for _, partition := range byPartner {
		ret = append(ret, partition)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].PartnerID < ret[j].PartnerID })
	return ret, skipped
}

func eligibility(rec *model.Record, tenantID string) string {
	switch {
	case rec.TenantID != tenantID:
		return CodeTenantMismatch
	case rec.Phase != model.PhaseApprovedTerminal || rec.Status != model.StatusApproved:
		return CodeNotApproved
	case rec.PartnerID == "":
		return CodeMissingPartner
	}
	return ""
}

func (s *Service) process(ctx context.Context, request *Request, partition *Partition) (*Artifact, []Failure) {
	artifactID, err := s.creator.Create(ctx, request, partition)
	if err != nil {
		s.metrics.Partition(metrics.OutcomeFailure)
		s.logger.Warn("artifact creation failed", zap.String("partner_id", partition.PartnerID), zap.Error(err))
		return nil, []Failure{{PartnerID: partition.PartnerID, Code: model.CodeOf(err), Error: err}}
	}
	artifact := &Artifact{ID: artifactID, PartnerID: partition.PartnerID, RecordIDs: partition.RecordIDs, Linked: []string{}}
	var failures []Failure
	for _, id := range partition.RecordIDs {
		_, err = s.records.UpdateFulfillment(ctx, &transition.FulfillmentRequest{
			RecordID:   id,
			Actor:      request.Actor,
			Status:     model.StatusLinked,
			ArtifactID: artifactID,
		})
		if err != nil {
			s.logger.Warn("relink failed", zap.String("record_id", id), zap.String("artifact_id", artifactID), zap.Error(err))
			failures = append(failures, Failure{PartnerID: partition.PartnerID, ArtifactID: artifactID, RecordID: id, Code: model.CodeOf(err), Error: err})
			continue
		}
		artifact.Linked = append(artifact.Linked, id)
	}
	if len(failures) > 0 {
		s.metrics.Partition(metrics.OutcomeFailure)
	} else {
		s.metrics.Partition(metrics.OutcomeSuccess)
	}
	return artifact, failures
}

// New creates a fan-out service.
func New(records Records, options ...Option) *Service {
	ret := &Service{records: records, tenants: map[string]bool{}, workers: DefaultWorkers, logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.creator == nil {
		ret.creator = NewOrderCreator(nil)
	}
	return ret
}
