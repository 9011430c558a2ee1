package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/autoeda/internal/testutil"
	apperrors "github.com/inferloop/autoeda/pkg/errors"
)

func TestStateStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "batch_state.json")
	store, err := NewStateStore(path, testutil.Logger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, apperrors.ErrStateNotFound)

	require.NoError(t, store.Save(ctx, []byte(`{"jobs":[],"runs":[]}`)))
	require.NoError(t, store.Save(ctx, []byte(`{"jobs":[{"job_id":"a"}],"runs":[]}`)))

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobs":[{"job_id":"a"}],"runs":[]}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
	assert.NoError(t, store.Close())
}

func TestNewStateStoreRequiresPath(t *testing.T) {
	_, err := NewStateStore("", nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestStateStoreHonoursContext(t *testing.T) {
	store, err := NewStateStore(filepath.Join(t.TempDir(), "s.json"), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, []byte("{}")), context.Canceled)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
