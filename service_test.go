package procureflow

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/approval"
	"github.com/viant/procureflow/service/logistics"
	"github.com/viant/procureflow/service/transition"
)

var (
	siteAdmin    = model.Actor{ID: "u-site", Role: model.RoleSiteAdmin}
	companyAdmin = model.Actor{ID: "u-company", Role: model.RoleCompanyAdmin}
)

type recordingProvider struct {
	mu        sync.Mutex
	shipped   []string
	artifacts map[string]string
}

func (p *recordingProvider) CreateShipment(_ context.Context, request *logistics.ShipmentRequest) (*logistics.Shipment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shipped = append(p.shipped, request.RecordID)
	if p.artifacts == nil {
		p.artifacts = map[string]string{}
	}
	p.artifacts[request.RecordID] = request.ArtifactID
	return &logistics.Shipment{ID: "S-" + request.RecordID, RecordID: request.RecordID, Status: logistics.ShipmentCreated}, nil
}

func (p *recordingProvider) GetStatus(context.Context, string) (logistics.ShipmentStatus, error) {
	return logistics.ShipmentCreated, nil
}

func (p *recordingProvider) Cancel(context.Context, string) error { return nil }

func (p *recordingProvider) CheckServiceability(context.Context, string) (bool, error) {
	return true, nil
}

func (p *recordingProvider) artifactOf(recordID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifacts[recordID]
}

func testConfig(fanOutTenants ...string) *Config {
	config := DefaultConfig()
	config.FanOut.Tenants = fanOutTenants
	config.Engine.RetryDelay = 10 * time.Millisecond
	return config
}

func newService(t *testing.T, options ...Option) *Service {
	t.Helper()
	config := testConfig("t1")
	srv, err := New(context.Background(), append([]Option{WithConfig(config)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	path, err := filepath.Abs(filepath.Join("testdata", "requisition.yaml"))
	require.NoError(t, err)
	_, err = srv.LoadDefinition(context.Background(), path)
	require.NoError(t, err)
	return srv
}

func submit(t *testing.T, srv *Service, id, partnerID, groupKey string) {
	t.Helper()
	_, err := srv.Submit(context.Background(), &transition.SubmitRequest{
		RecordID: id, TenantID: "t1", RecordType: model.RecordTypeRequisition, RequesterID: "u-req", PartnerID: partnerID, GroupKey: groupKey,
	})
	require.NoError(t, err)
}

func TestService_ApprovalFlow(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)

	definition, err := srv.ResolveActiveDefinition(ctx, "t1", model.RecordTypeRequisition)
	require.NoError(t, err)
	assert.Equal(t, 1, definition.Version)
	_, err = srv.ResolveActiveDefinition(ctx, "t9", model.RecordTypeRequisition)
	assert.ErrorIs(t, err, model.ErrNoActiveWorkflow)

	submit(t, srv, "r1", "p1", "")
	_, err = srv.Approve(ctx, "r1", companyAdmin)
	assert.ErrorIs(t, err, model.ErrRoleNotAllowedAtStage)

	result, err := srv.Approve(ctx, "r1", siteAdmin)
	require.NoError(t, err)
	assert.Equal(t, "company", result.Record.StageKey)
	assert.Equal(t, model.StatusPendingCompanyApproval, result.Record.Status)

	items, err := srv.Pending(ctx, "t1", companyAdmin)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].RecordID)
	items, err = srv.Pending(ctx, "t1", siteAdmin)
	require.NoError(t, err)
	assert.Empty(t, items)

	result, err = srv.Decide(ctx, &approval.Decision{RecordID: "r1", Actor: companyAdmin, Approved: true, Revision: result.Record.Revision})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, model.PhaseApprovedTerminal, result.Record.Phase)
}

func TestService_RejectAndResubmit(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	submit(t, srv, "r1", "p1", "")

	_, err := srv.Reject(ctx, "r1", siteAdmin, "PRICE", "")
	assert.ErrorIs(t, err, model.ErrRemarksRequired)
	_, err = srv.Reject(ctx, "r1", siteAdmin, "QUALITY", "bad")
	assert.ErrorIs(t, err, model.ErrReasonCodeNotAllowed)

	result, err := srv.Reject(ctx, "r1", siteAdmin, "PRICE", "too expensive")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseInStage, result.Record.Phase)
	assert.Equal(t, "site", result.Record.StageKey)
	assert.Equal(t, model.StatusReturned, result.Record.Status)
	assert.ElementsMatch(t, model.RoleSet{model.RoleSiteAdmin, model.RoleRequester}, result.Notify)

	_, err = srv.Approve(ctx, "r1", siteAdmin)
	require.NoError(t, err)
	result, err = srv.Reject(ctx, "r1", companyAdmin, "BUDGET", "no budget")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseRejected, result.Record.Phase)
	assert.Equal(t, model.ResubmitRestartSameRecord, result.Resubmission.Strategy)

	policy, err := srv.ResolvePolicy(ctx, "t1", model.RecordTypeRequisition, "company")
	require.NoError(t, err)
	assert.True(t, policy.TerminalOnReject)
	assert.Equal(t, 200, policy.RemarksMaxLength)

	result, err = srv.Resubmit(ctx, "r1", model.Actor{ID: "u-req", Role: model.RoleRequester})
	require.NoError(t, err)
	assert.Equal(t, "r1", result.Record.ID)
	assert.Equal(t, "site", result.Record.StageKey)
}

func TestService_GroupBulkAndFanOut(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	srv := newService(t, WithMetricsRegistry(registry))
	submit(t, srv, "r1", "p1", "G-1001")
	submit(t, srv, "r2", "p2", "G-1001")
	submit(t, srv, "r3", "p1", "G-1001")

	for _, id := range []string{"r1", "r2", "r3"} {
		members, err := srv.ExpandGroup(ctx, id)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, members)
	}

	outcome, err := srv.ApproveGroup(ctx, "r2", siteAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, outcome.Succeeded)
	outcome = srv.BulkApprove(ctx, []string{"r1", "r2", "r3"}, companyAdmin)
	assert.Equal(t, []string{"r1", "r2", "r3"}, outcome.Succeeded)

	fanOut, err := srv.CreateLinkedArtifact(ctx, []string{"r1", "r2", "r3"}, "EXT-9", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), "t1", companyAdmin)
	require.NoError(t, err)
	require.Len(t, fanOut.Artifacts, 2)
	assert.Empty(t, fanOut.Failures)

	rec, err := srv.Record(ctx, "r3")
	require.NoError(t, err)
	assert.Equal(t, model.StatusLinked, rec.Status)
	assert.Equal(t, "approved", rec.Legacy().Lifecycle)

	_, err = srv.CreateLinkedArtifact(ctx, []string{"r1"}, "EXT-9", time.Now(), "t2", companyAdmin)
	assert.ErrorIs(t, err, model.ErrFanOutDisabled)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["procureflow_transitions_total"])
	assert.True(t, names["procureflow_fanout_partitions_total"])
}

func TestService_Logistics(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{}
	srv := newService(t, WithConfig(testConfig()), WithLogistics(provider))
	submit(t, srv, "r1", "p1", "")
	for _, actor := range []model.Actor{siteAdmin, companyAdmin} {
		_, err := srv.Approve(ctx, "r1", actor)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		rec, err := srv.Record(ctx, "r1")
		return err == nil && rec.Status == model.StatusDispatched
	}, 5*time.Second, 10*time.Millisecond)

	result, err := srv.UpdateFulfillment(ctx, "r1", companyAdmin, model.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, "delivered", result.Record.Legacy().Fulfillment)
}

func TestService_LogisticsAfterFanOut(t *testing.T) {
	ctx := context.Background()
	provider := &recordingProvider{}
	srv := newService(t, WithLogistics(provider))
	submit(t, srv, "r1", "p1", "")
	submit(t, srv, "r2", "p2", "")
	for _, actor := range []model.Actor{siteAdmin, companyAdmin} {
		outcome := srv.BulkApprove(ctx, []string{"r1", "r2"}, actor)
		require.False(t, outcome.HasFailures())
	}

	fanOut, err := srv.CreateLinkedArtifact(ctx, []string{"r1", "r2"}, "EXT-7", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), "t1", companyAdmin)
	require.NoError(t, err)
	assert.Empty(t, fanOut.Skipped)
	assert.Empty(t, fanOut.Failures)
	require.Len(t, fanOut.Artifacts, 2)

	for _, artifact := range fanOut.Artifacts {
		recordID := artifact.RecordIDs[0]
		require.Eventually(t, func() bool {
			rec, err := srv.Record(ctx, recordID)
			return err == nil && rec.Status == model.StatusDispatched
		}, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, artifact.ID, provider.artifactOf(recordID))
		rec, err := srv.Record(ctx, recordID)
		require.NoError(t, err)
		assert.Equal(t, artifact.ID, rec.LinkedArtifactID)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Store.Kind = "redis"
	_, err := New(context.Background(), WithConfig(config))
	assert.Error(t, err)
}
