package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := fixedClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	store, err := New(Config{Dir: t.TempDir()}, clock, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "checkpoints")
		_, err := New(Config{Dir: dir}, fixedClock{}, nil)
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("rejects empty dir", func(t *testing.T) {
		_, err := New(Config{}, fixedClock{}, nil)
		require.Error(t, err)
	})

	t.Run("rejects file path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := New(Config{Dir: path}, fixedClock{}, nil)
		require.Error(t, err)
	})
}

func TestStore_Paths(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.Equal(t, "teams-checkpoint-2026-03-14.json", filepath.Base(store.RunPath()))
	require.Equal(t, "teams-2026-03-14.json", filepath.Base(store.FinalPath()))
}

func TestStore_LoadSave(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		store := newTestStore(t)

		snap := hierarchy.NewSnapshot()
		country := snap.EnsureCountry("england", "England", "http://example.com/england")
		country.PutLeague(&hierarchy.League{
			ID:     "premier",
			Name:   "Premier League",
			URL:    "http://example.com/premier",
			Status: hierarchy.StatusComplete,
			Teams: map[string]hierarchy.Team{
				"arsenal": {ID: "arsenal", Name: "Arsenal", URL: "http://example.com/arsenal"},
			},
		})

		path := store.RunPath()
		require.NoError(t, store.Save(path, snap))

		loaded, err := store.Load(path)
		require.NoError(t, err)
		require.Equal(t, snap, loaded)
	})

	t.Run("missing file yields empty snapshot", func(t *testing.T) {
		store := newTestStore(t)
		snap, err := store.Load(store.RunPath())
		require.NoError(t, err)
		require.Empty(t, snap.Countries)
	})

	t.Run("corrupt file yields empty snapshot", func(t *testing.T) {
		store := newTestStore(t)
		path := store.RunPath()
		require.NoError(t, os.WriteFile(path, []byte(`{"countries": {tru`), 0o600))

		snap, err := store.Load(path)
		require.NoError(t, err)
		require.Empty(t, snap.Countries)
	})

	t.Run("save leaves no temp files", func(t *testing.T) {
		store := newTestStore(t)
		path := store.RunPath()
		require.NoError(t, store.Save(path, hierarchy.NewSnapshot()))
		require.NoError(t, store.Save(path, hierarchy.NewSnapshot()))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, filepath.Base(path), entries[0].Name())
	})

	t.Run("save replaces previous contents wholesale", func(t *testing.T) {
		store := newTestStore(t)
		path := store.RunPath()

		first := hierarchy.NewSnapshot()
		first.EnsureCountry("england", "England", "")
		first.EnsureCountry("spain", "Spain", "")
		require.NoError(t, store.Save(path, first))

		second := hierarchy.NewSnapshot()
		second.EnsureCountry("england", "England", "")
		require.NoError(t, store.Save(path, second))

		loaded, err := store.Load(path)
		require.NoError(t, err)
		require.Len(t, loaded.Countries, 1)
	})
}
