package memory

import (
	"context"
	"eleven/app/client/sqlite"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Shutdown() })

	svc, err := NewService(db.DB)
	require.NoError(t, err)

	return svc
}

func TestRecentIsChronological(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.Append(ctx, RoleUser, "hola"))
	require.NoError(t, svc.Append(ctx, RoleModel, "¿qué tal?"))
	require.NoError(t, svc.Append(ctx, RoleUser, "abre la calculadora"))

	entries, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, RoleModel, entries[0].Role)
	assert.Equal(t, "¿qué tal?", entries[0].Content)
	assert.Equal(t, "abre la calculadora", entries[1].Content)
}

func TestClearKeepsFacts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.Append(ctx, RoleUser, "hola"))
	require.NoError(t, svc.RememberFact(ctx, "user_name", "Ana"))
	require.NoError(t, svc.Clear(ctx))

	entries, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var name string
	found, err := svc.RecallFact(ctx, "user_name", &name)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ana", name)
}

func TestRememberFactOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.RememberFact(ctx, "volume", map[string]int{"level": 3}))
	require.NoError(t, svc.RememberFact(ctx, "volume", map[string]int{"level": 7}))

	var out map[string]int
	found, err := svc.RecallFact(ctx, "volume", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 7, out["level"])

	found, err = svc.RecallFact(ctx, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
