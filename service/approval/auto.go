package approval

import (
	"context"
	"time"

	"github.com/viant/procureflow/model"
	"go.uber.org/zap"
)

// DecisionFunc turns a pending item into a decision. Returning nil leaves
// the item pending.
type DecisionFunc func(item *Item) *Decision

// AutoDecider polls the worklist of actor in tenantID and applies fn to every
// item until ctx is done or stop is called. Decide failures, stale state from
// a concurrent decision included, are logged; items still pending are retried
// on the next tick.
func AutoDecider(ctx context.Context, srv *Service, tenantID string, actor model.Actor, fn DecisionFunc, interval time.Duration, logger *zap.Logger) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			items, err := srv.Pending(ctx, tenantID, actor)
			if err != nil {
				logger.Warn("failed to list pending approvals", zap.String("tenant_id", tenantID), zap.Error(err))
				continue
			}
			for _, item := range items {
				decision := fn(item)
				if decision == nil {
					continue
				}
				decision.RecordID = item.RecordID
				decision.Actor = actor
				decision.Revision = item.Revision
				if _, err = srv.Decide(ctx, decision); err != nil {
					logger.Info("auto decision refused",
						zap.String("record_id", item.RecordID),
						zap.String("code", model.CodeOf(err)),
						zap.Error(err))
				}
			}
		}
	}()
	return cancel
}

// AutoApprove approves everything actor may approve.
func AutoApprove(ctx context.Context, srv *Service, tenantID string, actor model.Actor, interval time.Duration) func() {
	return AutoDecider(ctx, srv, tenantID, actor, func(item *Item) *Decision {
		if !item.CanApprove {
			return nil
		}
		return &Decision{Approved: true}
	}, interval, nil)
}

// AutoReject rejects everything actor may reject with reasonCode and remarks.
func AutoReject(ctx context.Context, srv *Service, tenantID string, actor model.Actor, reasonCode, remarks string, interval time.Duration) func() {
	return AutoDecider(ctx, srv, tenantID, actor, func(item *Item) *Decision {
		if !item.CanReject {
			return nil
		}
		return &Decision{ReasonCode: reasonCode, Remarks: remarks}
	}, interval, nil)
}
