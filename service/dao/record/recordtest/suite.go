// Package recordtest holds the behaviour every record.Service must share.
package recordtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/record"
)

func sample(id, group, partner string, at time.Time) *model.Record {
	return &model.Record{
		ID:          id,
		TenantID:    "t1",
		RecordType:  model.RecordTypeRequisition,
		Phase:       model.PhaseInStage,
		StageKey:    "site",
		Status:      model.StatusPendingSiteApproval,
		RequesterID: "u1",
		GroupKey:    group,
		PartnerID:   partner,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// Run exercises srv, which must start empty.
func Run(t *testing.T, srv record.Service) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create and load", func(t *testing.T) {
		rec := sample("r1", "G-1", "p1", at)
		require.NoError(t, srv.Save(ctx, rec, 0))
		assert.EqualValues(t, 1, rec.Revision)

		loaded, err := srv.Load(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, rec.Status, loaded.Status)
		assert.EqualValues(t, 1, loaded.Revision)
		assert.Equal(t, "G-1", loaded.GroupKey)
	})

	t.Run("create twice is stale", func(t *testing.T) {
		err := srv.Save(ctx, sample("r1", "", "", at), 0)
		assert.True(t, errors.Is(err, model.ErrStaleState), err)
	})

	t.Run("update with revision", func(t *testing.T) {
		rec, err := srv.Load(ctx, "r1")
		require.NoError(t, err)
		rec.Status = model.StatusPendingCompanyApproval
		require.NoError(t, srv.Save(ctx, rec, rec.Revision))
		assert.EqualValues(t, 2, rec.Revision)

		stale := sample("r1", "G-1", "p1", at)
		err = srv.Save(ctx, stale, 1)
		assert.True(t, errors.Is(err, model.ErrStaleState), err)
		loaded, _ := srv.Load(ctx, "r1")
		assert.Equal(t, model.StatusPendingCompanyApproval, loaded.Status)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := srv.Load(ctx, "missing")
		assert.True(t, errors.Is(err, model.ErrRecordNotFound), err)
		err = srv.Save(ctx, sample("missing", "", "", at), 3)
		assert.True(t, errors.Is(err, model.ErrStaleState), err)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, srv.Save(ctx, sample("r2", "G-1", "p2", at.Add(time.Minute)), 0))
		require.NoError(t, srv.Save(ctx, sample("r3", "G-2", "p1", at.Add(2*time.Minute)), 0))

		group, err := srv.List(ctx, dao.NewParameter(dao.ParamTenantID, "t1"), dao.NewParameter(dao.ParamGroupKey, "G-1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"r1", "r2"}, ids(group))

		byPartner, err := srv.List(ctx, dao.NewParameter(dao.ParamPartnerID, "p1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"r1", "r3"}, ids(byPartner))

		byIDs, err := srv.List(ctx, dao.NewParameter(dao.ParamIDs, "r3", "r2"))
		require.NoError(t, err)
		assert.Equal(t, []string{"r2", "r3"}, ids(byIDs))

		none, err := srv.List(ctx, dao.NewParameter(dao.ParamTenantID, "t2"))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		rec, err := srv.Load(ctx, "r3")
		require.NoError(t, err)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var succeeded, stale int
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				candidate := rec.Clone()
				candidate.Status = model.StatusApproved
				err := srv.Save(ctx, candidate, rec.Revision)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, model.ErrStaleState):
					stale++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 7, stale)
	})

	t.Run("invalid", func(t *testing.T) {
		assert.True(t, errors.Is(srv.Save(ctx, nil, 0), dao.ErrNilEntity))
		assert.True(t, errors.Is(srv.Save(ctx, &model.Record{}, 0), dao.ErrInvalidID))
	})
}

func ids(records []*model.Record) []string {
	var ret []string
	for _, rec := range records {
		ret = append(ret, rec.ID)
	}
	return ret
}
