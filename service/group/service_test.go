package group

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao/record/memory"
)

func seed(t *testing.T) *memory.Service {
	t.Helper()
	records := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, rec := range []*model.Record{
		{ID: "r1", TenantID: "t1", GroupKey: "G-1001"},
		{ID: "r2", TenantID: "t1", GroupKey: "G-1001"},
		{ID: "r3", TenantID: "t1", GroupKey: "G-1001"},
		{ID: "r4", TenantID: "t1"},
		{ID: "x1", TenantID: "t2", GroupKey: "G-1001"},
	} {
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, records.Save(context.Background(), rec, 0))
	}
	return records
}

func TestService_Expand(t *testing.T) {
	srv := New(seed(t))

	var testCases = []struct {
		description string
		id          string
		expect      []string
		expectErr   error
	}{
		{description: "first member", id: "r1", expect: []string{"r1", "r2", "r3"}},
		{description: "middle member", id: "r2", expect: []string{"r1", "r2", "r3"}},
		{description: "last member", id: "r3", expect: []string{"r1", "r2", "r3"}},
		{description: "no group key", id: "r4", expect: []string{"r4"}},
		{description: "tenant scoped", id: "x1", expect: []string{"x1"}},
		{description: "unknown", id: "zz", expectErr: model.ErrRecordNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual, err := srv.Expand(context.Background(), testCase.id)
			if testCase.expectErr != nil {
				assert.ErrorIs(t, err, testCase.expectErr)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, testCase.expect, actual)
		})
	}
}

func TestService_ExpandAll(t *testing.T) {
	srv := New(seed(t))
	actual, err := srv.ExpandAll(context.Background(), []string{"r4", "r2", "r3", "r4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r1", "r2", "r3"}, actual)
}

func TestSelection(t *testing.T) {
	members := []string{"r1", "r2", "r3"}
	assert.Equal(t, SelectionNone, Selection(members, nil))
	assert.Equal(t, SelectionSome, Selection(members, map[string]bool{"r2": true}))
	assert.Equal(t, SelectionAll, Selection(members, map[string]bool{"r1": true, "r2": true, "r3": true}))
	assert.Equal(t, "some", SelectionSome.String())
}
