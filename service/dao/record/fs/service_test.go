package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procureflow/service/dao"
	"github.com/viant/procureflow/service/dao/record/recordtest"
)

func TestService(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "records")
	srv, err := New(context.Background(), baseDir)
	require.NoError(t, err)
	recordtest.Run(t, srv)
}

func TestService_List_SkipsMalformed(t *testing.T) {
	baseDir := t.TempDir()
	ctx := context.Background()
	srv, err := New(ctx, baseDir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "broken.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "notes.txt"), []byte("x"), 0644))
	records, err := srv.List(ctx, dao.NewParameter(dao.ParamTenantID, "t1"))
	require.NoError(t, err)
	assert.Empty(t, records)
}
