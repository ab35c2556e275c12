package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/record/memory"
	"github.com/viant/procureflow/service/registry"
	"github.com/viant/procureflow/service/transition"
)

var admin = model.Actor{ID: "u-company", Role: model.RoleCompanyAdmin}

type failingCreator struct {
	delegate ArtifactCreator
	partner  string
}

func (c *failingCreator) Create(ctx context.Context, request *Request, partition *Partition) (string, error) {
	if partition.PartnerID == c.partner {
		return "", errors.New("downstream unavailable")
	}
	return c.delegate.Create(ctx, request, partition)
}

func newEngine(t *testing.T, records map[string]string) *transition.Service {
	t.Helper()
	ctx := context.Background()
	definitions := registry.New()
	_, err := definitions.Save(ctx, &model.Definition{
		TenantID:   "t1",
		RecordType: model.RecordTypeRequisitionOrder,
		Name:       "company only",
		Active:     true,
		Stages: []*model.Stage{
			{Key: "company", Order: 1, Terminal: true, AllowedRoles: model.RoleSet{model.RoleCompanyAdmin}, CanApprove: true, CanReject: true},
		},
	})
	require.NoError(t, err)
	engine := transition.New(definitions, memory.New())
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		partner, ok := records[id]
		if !ok {
			continue
		}
		_, err = engine.Submit(ctx, &transition.SubmitRequest{RecordID: id, TenantID: "t1", RecordType: model.RecordTypeRequisitionOrder, RequesterID: "u-req", PartnerID: partner})
		require.NoError(t, err)
		if id != "r5" {
			_, err = engine.Approve(ctx, &transition.Request{RecordID: id, Actor: admin})
			require.NoError(t, err)
		}
	}
	return engine
}

func TestService_CreateLinkedArtifacts(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, map[string]string{"r1": "p1", "r2": "p2", "r3": "p1", "r4": "", "r5": "p1"})
	creator := NewOrderCreator(nil)
	srv := New(engine, WithTenants("t1"), WithCreator(creator), WithWorkers(2))
	refDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	outcome, err := srv.CreateLinkedArtifacts(ctx, &Request{
		TenantID:          "t1",
		RecordIDs:         []string{"r1", "r2", "r3", "r4", "r5", "missing", "r1"},
		ExternalRefNumber: "EXT-1",
		ExternalRefDate:   refDate,
		Actor:             admin,
	})
	require.NoError(t, err)
	require.Len(t, outcome.Artifacts, 2)
	assert.Empty(t, outcome.Failures)
	assert.Equal(t, "p1", outcome.Artifacts[0].PartnerID)
	assert.Equal(t, []string{"r1", "r3"}, outcome.Artifacts[0].Linked)
	assert.Equal(t, []string{"r2"}, outcome.Artifacts[1].Linked)
	assert.ElementsMatch(t, []Skip{
		{ID: "r4", Code: CodeMissingPartner},
		{ID: "r5", Code: CodeNotApproved},
		{ID: "missing", Code: "RecordNotFound"},
	}, outcome.Skipped)

	rec, err := engine.Load(ctx, "r3")
	require.NoError(t, err)
	assert.Equal(t, model.StatusLinked, rec.Status)
	assert.Equal(t, outcome.Artifacts[0].ID, rec.LinkedArtifactID)

	orders, err := creator.Orders().List(ctx, dao.NewParameter(dao.ParamPartnerID, "p1"))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "EXT-1", orders[0].ExternalRefNumber)
	assert.Equal(t, refDate, orders[0].ExternalRefDate)
	assert.Equal(t, []string{"r1", "r3"}, orders[0].RecordIDs)
}

func TestService_CreateLinkedArtifacts_PartitionIsolation(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, map[string]string{"r1": "p1", "r2": "p2", "r3": "p1"})
	srv := New(engine, WithTenants("*"), WithCreator(&failingCreator{delegate: NewOrderCreator(nil), partner: "p2"}))

	outcome, err := srv.CreateLinkedArtifacts(ctx, &Request{TenantID: "t1", RecordIDs: []string{"r1", "r2", "r3"}, Actor: admin})
	require.NoError(t, err)
	require.Len(t, outcome.Artifacts, 1)
	assert.Equal(t, "p1", outcome.Artifacts[0].PartnerID)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "p2", outcome.Failures[0].PartnerID)
	assert.Equal(t, "Internal", outcome.Failures[0].Code)

	rec, err := engine.Load(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, rec.Status)

	outcome, err = srv.CreateLinkedArtifacts(ctx, &Request{TenantID: "t1", RecordIDs: []string{"r1"}, Actor: admin})
	require.NoError(t, err)
	assert.Empty(t, outcome.Artifacts)
	assert.Equal(t, []Skip{{ID: "r1", Code: CodeNotApproved}}, outcome.Skipped)
}

func TestService_CreateLinkedArtifacts_Disabled(t *testing.T) {
	var testCases = []struct {
		description string
		tenants     []string
		tenantID    string
		expectErr   bool
	}{
		{description: "no tenants", tenantID: "t1", expectErr: true},
		{description: "other tenant", tenants: []string{"t2"}, tenantID: "t1", expectErr: true},
		{description: "wildcard", tenants: []string{"*"}, tenantID: "t1"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			srv := New(transition.New(registry.New(), memory.New()), WithTenants(testCase.tenants...))
			outcome, err := srv.CreateLinkedArtifacts(context.Background(), &Request{TenantID: testCase.tenantID})
			if testCase.expectErr {
				assert.ErrorIs(t, err, model.ErrFanOutDisabled)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, outcome.Artifacts)
		})
	}
}
