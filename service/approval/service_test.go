package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/internal/clock"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao/record/memory"
	"github.com/viant/procureflow/service/registry"
	"github.com/viant/procureflow/service/transition"
)

var (
	siteAdmin    = model.Actor{ID: "u-site", Role: model.RoleSiteAdmin}
	companyAdmin = model.Actor{ID: "u-company", Role: model.RoleCompanyAdmin}
	requester    = model.Actor{ID: "u-req", Role: model.RoleRequester}
)

type fixture struct {
	engine   *transition.Service
	approval *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	definitions := registry.New()
	_, err := definitions.Save(ctx, &model.Definition{
		TenantID:   "t1",
		RecordType: model.RecordTypeRequisition,
		Name:       "site then company",
		Active:     true,
		Stages: []*model.Stage{
			{Key: "site", Name: "Site approval", Order: 1, AllowedRoles: model.RoleSet{model.RoleSiteAdmin}, CanApprove: true, CanReject: true},
			{Key: "company", Name: "Company approval", Order: 2, Terminal: true, AllowedRoles: model.RoleSet{model.RoleCompanyAdmin}, CanApprove: true, CanReject: true},
		},
	})
	require.NoError(t, err)
	records := memory.New()
	engine := transition.New(definitions, records)
	return &fixture{engine: engine, approval: New(definitions, records, engine)}
}

func (f *fixture) submit(t *testing.T, tenantID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.engine.Submit(context.Background(), &transition.SubmitRequest{
			RecordID: id, TenantID: tenantID, RecordType: model.RecordTypeRequisition, RequesterID: requester.ID,
		})
		require.NoError(t, err)
	}
}

func TestService_Pending(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	restore := clock.Fixed(start)
	f := newFixture(t)
	f.submit(t, "t1", "r1")
	clock.NowFunc = func() time.Time { return start.Add(time.Hour) }
	f.submit(t, "t1", "r2", "r3")
	clock.NowFunc = func() time.Time { return start.Add(3 * time.Hour) }
	defer restore()

	_, err := f.engine.Approve(ctx, &transition.Request{RecordID: "r3", Actor: siteAdmin})
	require.NoError(t, err)

	var testCases = []struct {
		description string
		tenantID    string
		actor       model.Actor
		expect      []string
	}{
		{description: "site admin sees oldest first", tenantID: "t1", actor: siteAdmin, expect: []string{"r1", "r2"}},
		{description: "company admin", tenantID: "t1", actor: companyAdmin, expect: []string{"r3"}},
		{description: "requester has nothing", tenantID: "t1", actor: requester},
		{description: "other tenant", tenantID: "t2", actor: siteAdmin},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			items, err := f.approval.Pending(ctx, testCase.tenantID, testCase.actor)
			require.NoError(t, err)
			var ids []string
			for _, item := range items {
				ids = append(ids, item.RecordID)
			}
			assert.Equal(t, testCase.expect, ids)
		})
	}

	items, err := f.approval.Pending(ctx, "t1", siteAdmin)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Site approval", items[0].StageName)
	assert.Equal(t, 3*time.Hour, items[0].WaitingFor)
	assert.True(t, items[0].CanApprove)
}

func TestService_Decide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.submit(t, "t1", "r1", "r2")

	result, err := f.approval.Decide(ctx, &Decision{RecordID: "r1", Actor: siteAdmin, Approved: true, Revision: 1})
	require.NoError(t, err)
	assert.Equal(t, "company", result.Record.StageKey)

	_, err = f.approval.Decide(ctx, &Decision{RecordID: "r1", Actor: companyAdmin, Approved: true, Revision: 1})
	assert.ErrorIs(t, err, model.ErrStaleState)

	result, err = f.approval.Decide(ctx, &Decision{RecordID: "r2", Actor: siteAdmin, ReasonCode: "BUDGET", Remarks: "over budget"})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseRejected, result.Record.Phase)

	_, err = f.approval.Decide(ctx, &Decision{Actor: siteAdmin, Approved: true})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestAutoDecider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.submit(t, "t1", "r1", "r2")

	stopSite := AutoApprove(ctx, f.approval, "t1", siteAdmin, 5*time.Millisecond)
	defer stopSite()
	stopCompany := AutoReject(ctx, f.approval, "t1", companyAdmin, "BUDGET", "auto", 5*time.Millisecond)
	defer stopCompany()

	require.Eventually(t, func() bool {
		for _, id := range []string{"r1", "r2"} {
			rec, err := f.engine.Load(ctx, id)
			if err != nil || rec.Phase != model.PhaseRejected {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	rec, err := f.engine.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "company", rec.RejectedAtStage)
}
