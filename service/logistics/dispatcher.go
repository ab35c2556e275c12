package logistics

import (
	"context"
	"fmt"

	"github.com/viant/procureflow/metrics"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/event"
	"github.com/viant/procureflow/service/transition"
	"github.com/viant/procureflow/tracing"
	"go.uber.org/zap"
)

// Fulfillment advances post-approval status.
type Fulfillment interface {
	UpdateFulfillment(ctx context.Context, request *transition.FulfillmentRequest) (*transition.Result, error)
}

// Dispatcher ships records that reached APPROVED_TERMINAL. Records of
// tenants that link approvals to a downstream artifact ship once linked.
// A returned error Nacks the delivery so the queue retries it.
type Dispatcher struct {
	provider    Provider
	fulfillment Fulfillment
	actor       model.Actor
	metrics     *metrics.Metrics
	logger      *zap.Logger
	awaitsLink  func(tenantID string) bool
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLinkedDispatch makes tenants for which awaitsLink returns true ship on
// the link event instead of the final approval.
func WithLinkedDispatch(awaitsLink func(tenantID string) bool) DispatcherOption {
	return func(d *Dispatcher) { d.awaitsLink = awaitsLink }
}

func (d *Dispatcher) triggers(data *transition.Event) bool {
	if data.Phase != model.PhaseApprovedTerminal {
		return false
	}
	linked := d.awaitsLink != nil && d.awaitsLink(data.TenantID)
	switch data.Action {
	case model.ActionApprove:
		return !linked
	case model.ActionLink:
		return linked && data.Status == model.StatusLinked
	}
	return false
}

// Handle processes one transition event.
func (d *Dispatcher) Handle(ctx context.Context, evt *event.Event[transition.Event]) (err error) {
	data := evt.Data
	if !d.triggers(&data) {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "logistics.dispatch", tracing.KindClient)
	span.WithAttributes(map[string]string{tracing.AttrRecordID: data.RecordID, tracing.AttrTenantID: data.TenantID})
	defer func() { tracing.EndSpan(span, err) }()

	if data.PartnerID == "" {
		d.metrics.Dispatch(metrics.OutcomeSkipped)
		d.logger.Info("dispatch skipped", zap.String("record_id", data.RecordID), zap.String("outcome", "no partner"))
		return nil
	}
	serviceable, err := d.provider.CheckServiceability(ctx, data.PartnerID)
	if err != nil {
		d.metrics.Dispatch(metrics.OutcomeFailure)
		return fmt.Errorf("failed to check serviceability of %s: %w", data.PartnerID, err)
	}
	if !serviceable {
		d.metrics.Dispatch(metrics.OutcomeSkipped)
		d.logger.Info("dispatch skipped", zap.String("record_id", data.RecordID), zap.String("outcome", "not serviceable"))
		return nil
	}
	shipment, err := d.provider.CreateShipment(ctx, &ShipmentRequest{
		RecordID:   data.RecordID,
		TenantID:   data.TenantID,
		PartnerID:  data.PartnerID,
		ArtifactID: data.LinkedArtifactID,
	})
	if err != nil {
		d.metrics.Dispatch(metrics.OutcomeFailure)
		return fmt.Errorf("failed to create shipment for %s: %w", data.RecordID, err)
	}
	_, err = d.fulfillment.UpdateFulfillment(ctx, &transition.FulfillmentRequest{
		RecordID: data.RecordID,
		Actor:    d.actor,
		Status:   model.StatusDispatched,
	})
	if err != nil {
		if kind := model.KindOf(err); kind == model.KindValidation || kind == model.KindNotFound {
			d.metrics.Dispatch(metrics.OutcomeSkipped)
			d.logger.Warn("shipment created but record not advanced",
				zap.String("record_id", data.RecordID), zap.String("shipment_id", shipment.ID), zap.Error(err))
			return nil
		}
		d.metrics.Dispatch(metrics.OutcomeFailure)
		return err
	}
	d.metrics.Dispatch(metrics.OutcomeSuccess)
	d.logger.Info("record dispatched", zap.String("record_id", data.RecordID), zap.String("shipment_id", shipment.ID))
	return nil
}

// Attach registers the dispatcher as the transition event listener of events.
func (d *Dispatcher) Attach(ctx context.Context, events *event.Service) *event.Listener[transition.Event] {
	return event.SetListenerOf[transition.Event](ctx, events, d.Handle)
}

// NewDispatcher creates a dispatcher acting as actor.
func NewDispatcher(provider Provider, fulfillment Fulfillment, actor model.Actor, m *metrics.Metrics, logger *zap.Logger, options ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ret := &Dispatcher{provider: provider, fulfillment: fulfillment, actor: actor, metrics: m, logger: logger}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
