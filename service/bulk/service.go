// Package bulk applies one transition to many records independently. A
// failure on one record never prevents or undoes the others.
package bulk

import (
	"context"

	"github.com/viant/procureflow/metrics"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/progress"
	"github.com/viant/procureflow/service/transition"
	"github.com/viant/procureflow/tracing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Transitions is the subset of the transition engine used by bulk calls.
type Transitions interface {
	Approve(ctx context.Context, request *transition.Request) (*transition.Result, error)
	Reject(ctx context.Context, request *transition.Request) (*transition.Result, error)
}

// Expander expands a record into its group.
type Expander interface {
	Expand(ctx context.Context, id string) ([]string, error)
}

// Service coordinates bulk transitions.
type Service struct {
	transitions Transitions
	groups      Expander
	workers     int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Approve approves every record in ids as actor. A progress tracker carried
// by ctx receives per-record updates.
func (s *Service) Approve(ctx context.Context, ids []string, actor model.Actor) *Outcome {
	return s.run(ctx, model.ActionApprove, ids, func(ctx context.Context, id string) error {
		_, err := s.transitions.Approve(ctx, &transition.Request{RecordID: id, Actor: actor})
		return err
	})
}

// Reject rejects every record in ids as actor with a shared reason code and remarks.
func (s *Service) Reject(ctx context.Context, ids []string, actor model.Actor, reasonCode, remarks string) *Outcome {
	return s.run(ctx, model.ActionReject, ids, func(ctx context.Context, id string) error {
		_, err := s.transitions.Reject(ctx, &transition.Request{RecordID: id, Actor: actor, ReasonCode: reasonCode, Remarks: remarks})
		return err
	})
}

// ApproveGroup expands anyMemberID into its group and approves every member.
// Members approved before a sibling fails stay approved.
func (s *Service) ApproveGroup(ctx context.Context, anyMemberID string, actor model.Actor) (*Outcome, error) {
	ids, err := s.groups.Expand(ctx, anyMemberID)
	if err != nil {
		return nil, err
	}
	return s.Approve(ctx, ids, actor), nil
}

func (s *Service) run(ctx context.Context, action model.Action, ids []string, apply func(ctx context.Context, id string) error) *Outcome {
	ids = unique(ids)
	ctx, span := tracing.StartSpan(ctx, "bulk."+string(action), tracing.KindInternal)
	span.WithInt(tracing.AttrCount, len(ids))
	defer tracing.EndSpan(span, nil)
	s.metrics.Bulk(string(action), len(ids))
	progress.UpdateCtx(ctx, progress.Delta{Total: len(ids)})

	errs := make([]error, len(ids))
	group := errgroup.Group{}
	group.SetLimit(s.workers)
	for i, id := range ids {
		group.Go(func() error {
			progress.UpdateCtx(ctx, progress.Delta{Running: 1})
			errs[i] = apply(ctx, id)
			if errs[i] != nil {
				progress.UpdateCtx(ctx, progress.Delta{Running: -1, Failed: 1})
				return nil
			}
			progress.UpdateCtx(ctx, progress.Delta{Running: -1, Succeeded: 1})
			return nil
		})
	}
	_ = group.Wait()

	outcome := &Outcome{Succeeded: []string{}, Failed: []Failure{}}
	for i, id := range ids {
		if errs[i] == nil {
			outcome.Succeeded = append(outcome.Succeeded, id)
			continue
		}
		outcome.Failed = append(outcome.Failed, Failure{ID: id, Code: model.CodeOf(errs[i]), Error: errs[i]})
	}
	s.logger.Info("bulk transition finished",
		zap.String("action", string(action)),
		zap.Int("succeeded", len(outcome.Succeeded)),
		zap.Int("failed", len(outcome.Failed)))
	return outcome
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	ret := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ret = append(ret, id)
	}
	return ret
}

// New creates a bulk coordinator.
func New(transitions Transitions, groups Expander, options ...Option) *Service {
	ret := &Service{transitions: transitions, groups: groups, workers: DefaultWorkers, logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
