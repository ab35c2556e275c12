package logistics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao/record/memory"
	"github.com/viant/procureflow/service/event"
	"github.com/viant/procureflow/service/registry"
	"github.com/viant/procureflow/service/transition"
)

type fakeProvider struct {
	mu          sync.Mutex
	failures    int
	unservable  map[string]bool
	shipments   []*ShipmentRequest
	cancelled   []string
	checkFailed error
}

func (p *fakeProvider) CreateShipment(_ context.Context, request *ShipmentRequest) (*Shipment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("carrier unavailable")
	}
	p.shipments = append(p.shipments, request)
	return &Shipment{ID: "S-" + request.RecordID, RecordID: request.RecordID, Status: ShipmentCreated}, nil
}

func (p *fakeProvider) GetStatus(_ context.Context, shipmentID string) (ShipmentStatus, error) {
	return ShipmentInTransit, nil
}

func (p *fakeProvider) Cancel(_ context.Context, shipmentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, shipmentID)
	return nil
}

func (p *fakeProvider) CheckServiceability(_ context.Context, partnerID string) (bool, error) {
	if p.checkFailed != nil {
		return false, p.checkFailed
	}
	return !p.unservable[partnerID], nil
}

func (p *fakeProvider) shipped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.shipments)
}

var (
	admin  = model.Actor{ID: "u-company", Role: model.RoleCompanyAdmin}
	system = model.Actor{ID: "logistics", Role: model.RoleProcurementOfficer}
)

func approvedEngine(t *testing.T, options ...transition.Option) *transition.Service {
	t.Helper()
	definitions := registry.New()
	_, err := definitions.Save(context.Background(), &model.Definition{
		TenantID:   "t1",
		RecordType: model.RecordTypePurchaseOrder,
		Name:       "single",
		Active:     true,
		Stages: []*model.Stage{
			{Key: "company", Order: 1, Terminal: true, AllowedRoles: model.RoleSet{model.RoleCompanyAdmin}, CanApprove: true, CanReject: true},
		},
	})
	require.NoError(t, err)
	return transition.New(definitions, memory.New(), options...)
}

func approvedEvent(partnerID string) *event.Event[transition.Event] {
	return event.NewEvent(&event.Context{TenantID: "t1", RecordID: "r1", EventType: transition.EventTransition}, transition.Event{
		RecordID:  "r1",
		TenantID:  "t1",
		Action:    model.ActionApprove,
		Phase:     model.PhaseApprovedTerminal,
		Status:    model.StatusApproved,
		PartnerID: partnerID,
	})
}

func TestDispatcher_Handle(t *testing.T) {
	var testCases = []struct {
		description  string
		provider     *fakeProvider
		event        *event.Event[transition.Event]
		expectErr    bool
		expectStatus model.Status
		expectShips  int
	}{
		{
			description:  "approved record is dispatched",
			provider:     &fakeProvider{},
			event:        approvedEvent("p1"),
			expectStatus: model.StatusDispatched,
			expectShips:  1,
		},
		{
			description:  "not serviceable",
			provider:     &fakeProvider{unservable: map[string]bool{"p1": true}},
			event:        approvedEvent("p1"),
			expectStatus: model.StatusApproved,
		},
		{
			description:  "no partner",
			provider:     &fakeProvider{},
			event:        approvedEvent(""),
			expectStatus: model.StatusApproved,
		},
		{
			description:  "carrier failure is retried",
			provider:     &fakeProvider{failures: 1},
			event:        approvedEvent("p1"),
			expectErr:    true,
			expectStatus: model.StatusApproved,
		},
		{
			description:  "serviceability failure is retried",
			provider:     &fakeProvider{checkFailed: errors.New("timeout")},
			event:        approvedEvent("p1"),
			expectErr:    true,
			expectStatus: model.StatusApproved,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			ctx := context.Background()
			engine := approvedEngine(t)
			_, err := engine.Submit(ctx, &transition.SubmitRequest{RecordID: "r1", TenantID: "t1", RecordType: model.RecordTypePurchaseOrder, RequesterID: "u-req", PartnerID: "p1"})
			require.NoError(t, err)
			_, err = engine.Approve(ctx, &transition.Request{RecordID: "r1", Actor: admin})
			require.NoError(t, err)

			dispatcher := NewDispatcher(testCase.provider, engine, system, nil, nil)
			err = dispatcher.Handle(ctx, testCase.event)
			if testCase.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			rec, err := engine.Load(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, rec.Status)
			assert.Equal(t, model.PhaseApprovedTerminal, rec.Phase)
			assert.Equal(t, testCase.expectShips, testCase.provider.shipped())
		})
	}
}

func TestDispatcher_IgnoresOtherEvents(t *testing.T) {
	provider := &fakeProvider{}
	dispatcher := NewDispatcher(provider, approvedEngine(t), system, nil, nil)
	evt := approvedEvent("p1")
	evt.Data.Phase = model.PhaseInStage
	require.NoError(t, dispatcher.Handle(context.Background(), evt))
	assert.Equal(t, 0, provider.shipped())
}

func TestDispatcher_Triggers(t *testing.T) {
	linkedTenants := func(tenantID string) bool { return tenantID == "t1" }
	var testCases = []struct {
		description string
		tenantID    string
		action      model.Action
		phase       model.Phase
		status      model.Status
		linked      func(string) bool
		expect      bool
	}{
		{description: "approval without fan-out", tenantID: "t1", action: model.ActionApprove, phase: model.PhaseApprovedTerminal, status: model.StatusApproved, expect: true},
		{description: "approval of fan-out tenant waits for link", tenantID: "t1", action: model.ActionApprove, phase: model.PhaseApprovedTerminal, status: model.StatusApproved, linked: linkedTenants},
		{description: "approval of other tenant", tenantID: "t2", action: model.ActionApprove, phase: model.PhaseApprovedTerminal, status: model.StatusApproved, linked: linkedTenants, expect: true},
		{description: "link of fan-out tenant", tenantID: "t1", action: model.ActionLink, phase: model.PhaseApprovedTerminal, status: model.StatusLinked, linked: linkedTenants, expect: true},
		{description: "link without fan-out", tenantID: "t1", action: model.ActionLink, phase: model.PhaseApprovedTerminal, status: model.StatusLinked},
		{description: "intermediate approval", tenantID: "t1", action: model.ActionApprove, phase: model.PhaseInStage, status: model.StatusPendingCompanyApproval},
		{description: "fulfillment update", tenantID: "t1", action: model.ActionFulfillment, phase: model.PhaseApprovedTerminal, status: model.StatusDispatched, linked: linkedTenants},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			var options []DispatcherOption
			if testCase.linked != nil {
				options = append(options, WithLinkedDispatch(testCase.linked))
			}
			dispatcher := NewDispatcher(&fakeProvider{}, nil, system, nil, nil, options...)
			data := &transition.Event{TenantID: testCase.tenantID, Action: testCase.action, Phase: testCase.phase, Status: testCase.status}
			assert.Equal(t, testCase.expect, dispatcher.triggers(data))
		})
	}
}

func TestDispatcher_Handle_Linked(t *testing.T) {
	ctx := context.Background()
	engine := approvedEngine(t)
	_, err := engine.Submit(ctx, &transition.SubmitRequest{RecordID: "r1", TenantID: "t1", RecordType: model.RecordTypePurchaseOrder, RequesterID: "u-req", PartnerID: "p1"})
	require.NoError(t, err)
	_, err = engine.Approve(ctx, &transition.Request{RecordID: "r1", Actor: admin})
	require.NoError(t, err)

	provider := &fakeProvider{}
	dispatcher := NewDispatcher(provider, engine, system, nil, nil, WithLinkedDispatch(func(string) bool { return true }))
	require.NoError(t, dispatcher.Handle(ctx, approvedEvent("p1")))
	assert.Equal(t, 0, provider.shipped())

	result, err := engine.UpdateFulfillment(ctx, &transition.FulfillmentRequest{RecordID: "r1", Actor: system, Status: model.StatusLinked, ArtifactID: "PO-1"})
	require.NoError(t, err)
	linked := event.NewEvent(&event.Context{TenantID: "t1", RecordID: "r1", EventType: transition.EventTransition}, transition.Event{
		RecordID:         "r1",
		TenantID:         "t1",
		Action:           model.ActionLink,
		Phase:            result.Record.Phase,
		Status:           result.Record.Status,
		PartnerID:        "p1",
		LinkedArtifactID: result.Record.LinkedArtifactID,
	})
	require.NoError(t, dispatcher.Handle(ctx, linked))
	require.Equal(t, 1, provider.shipped())
	assert.Equal(t, "PO-1", provider.shipments[0].ArtifactID)

	rec, err := engine.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDispatched, rec.Status)
	assert.Equal(t, "PO-1", rec.LinkedArtifactID)
}

func TestDispatcher_Attach(t *testing.T) {
	ctx := context.Background()
	events := event.New()
	defer events.Close()
	engine := approvedEngine(t, transition.WithEvents(events))
	provider := &fakeProvider{failures: 1}
	NewDispatcher(NewClient(provider, nil, nil), engine, system, nil, nil).Attach(ctx, events)

	_, err := engine.Submit(ctx, &transition.SubmitRequest{RecordID: "r1", TenantID: "t1", RecordType: model.RecordTypePurchaseOrder, RequesterID: "u-req", PartnerID: "p1"})
	require.NoError(t, err)
	_, err = engine.Approve(ctx, &transition.Request{RecordID: "r1", Actor: admin})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rec, err := engine.Load(ctx, "r1")
		return err == nil && rec.Status == model.StatusDispatched
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, provider.shipped())
}

func TestClient_Breaker(t *testing.T) {
	provider := &fakeProvider{failures: 10}
	client := NewClient(provider, &Config{MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.CreateShipment(ctx, &ShipmentRequest{RecordID: "r1"})
		assert.EqualError(t, err, "carrier unavailable")
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())
	_, err := client.CreateShipment(ctx, &ShipmentRequest{RecordID: "r1"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	status, err := NewClient(provider, nil, nil).GetStatus(ctx, "S-1")
	require.NoError(t, err)
	assert.Equal(t, ShipmentInTransit, status)
	require.NoError(t, NewClient(provider, nil, nil).Cancel(ctx, "S-1"))
	assert.Equal(t, []string{"S-1"}, provider.cancelled)
}
