package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/rlquery/pkg/catalog"
	"github.com/ethpandaops/rlquery/pkg/config"
	"github.com/ethpandaops/rlquery/pkg/query"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func setupTestStore(t *testing.T, path string) catalog.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: path},
	}

	s := catalog.NewStore(newTestLogger(), cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestStore_UpsertAndListEntries(t *testing.T) {
	s := setupTestStore(t, ":memory:")
	ctx := context.Background()

	now := time.Now().UTC()

	require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{
		Task: "hopper", Category: "log", RunKey: "2022/08/10/12-00-00-000002",
		Keyed: true, Dirname: "/d/2", IndexedAt: now,
	}))
	require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{
		Task: "hopper", Category: "log", RunKey: "2022/08/10/12-00-00-000001",
		Keyed: true, Dirname: "/d/1", IndexedAt: now,
	}))
	require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{
		Task: "hopper", Category: "hyperparam", RunKey: "2022/08/10/12-00-00-000001",
		Keyed: true, ParamsJSON: `{"lr":0.1}`, IndexedAt: now,
	}))
	require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{
		Task: "walker", Category: "log", RunKey: "/d/unkeyed", IndexedAt: now,
	}))

	logs, err := s.ListEntries(ctx, "hopper", "log")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "/d/1", logs[0].Dirname)

	all, err := s.ListEntries(ctx, "hopper", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hopper", "walker"}, tasks)
}

func TestStore_UpsertEntryIdempotent(t *testing.T) {
	s := setupTestStore(t, ":memory:")
	ctx := context.Background()

	e := &catalog.Entry{Task: "hopper", Category: "checkpoint", RunKey: "k", Checkpoints: 1}
	require.NoError(t, s.UpsertEntry(ctx, e))

	updated := &catalog.Entry{Task: "hopper", Category: "checkpoint", RunKey: "k", Checkpoints: 3}
	require.NoError(t, s.UpsertEntry(ctx, updated))

	entries, err := s.ListEntries(ctx, "hopper", "checkpoint")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Checkpoints)
}

func TestStore_UpsertEntryRefreshesFields(t *testing.T) {
	s := setupTestStore(t, ":memory:")
	ctx := context.Background()

	first := time.Date(2022, 8, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{
		Task: "hopper", Category: "misc", RunKey: "k", Keyed: true,
		Dirname: "/old", ParamsJSON: `{"lr":0.1}`, Files: 2,
		LastModified: &first, IndexedAt: first,
	}))

	require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{
		Task: "hopper", Category: "misc", RunKey: "k", Keyed: true,
		Dirname: "/new", Files: 0, LastModified: &second, IndexedAt: second,
	}))

	entries, err := s.ListEntries(ctx, "hopper", "misc")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, "/new", got.Dirname)
	assert.Empty(t, got.ParamsJSON)
	assert.Equal(t, 0, got.Files)
	require.NotNil(t, got.LastModified)
	assert.True(t, second.Equal(*got.LastModified))
	assert.True(t, second.Equal(got.IndexedAt))
}

func TestStore_PruneEntries(t *testing.T) {
	s := setupTestStore(t, ":memory:")
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, s.UpsertEntry(ctx, &catalog.Entry{Task: "t", Category: "log", RunKey: key}))
	}

	pruned, err := s.PruneEntries(ctx, "t", "log", []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	entries, err := s.ListEntries(ctx, "t", "log")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].RunKey)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	s := catalog.NewStore(newTestLogger(), &config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, s.Start(context.Background()))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestIndexer_Index(t *testing.T) {
	root := t.TempDir()
	run := "2022/08/10/12-00-00-000001"

	writeFile(t, root, "log/hopper/"+run+"/progress.csv", "time-step,return\n1,2\n")
	writeFile(t, root, "hyparam/hopper/"+run+"/parameter.json", `{"lr": 0.1}`)
	writeFile(t, root, "checkpoint/hopper/"+run+"/ckpt-1", "")
	writeFile(t, root, "checkpoint/hopper/"+run+"/ckpt-2", "")
	writeFile(t, root, "results/hopper/"+run+"/return.png", "png")
	writeFile(t, root, "results/hopper/"+run+"/notes.txt", "notes")
	writeFile(t, root, "log/hopper/adhoc/progress.csv", "time-step\n")

	store := setupTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	log := newTestLogger()
	idx := catalog.NewIndexer(log, store, query.NewQuerier(log), root, nil)

	ctx := context.Background()

	n, err := idx.Index(ctx, "hopper")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	logs, err := store.ListEntries(ctx, "hopper", "log")
	require.NoError(t, err)
	require.Len(t, logs, 2)

	var unkeyed int

	for _, e := range logs {
		if !e.Keyed {
			unkeyed++
			assert.Equal(t, filepath.Join(root, "log/hopper/adhoc"), e.RunKey)
		}
	}

	assert.Equal(t, 1, unkeyed)

	hp, err := store.ListEntries(ctx, "hopper", "hyperparam")
	require.NoError(t, err)
	require.Len(t, hp, 1)
	assert.JSONEq(t, `{"lr": 0.1}`, hp[0].ParamsJSON)

	ckpt, err := store.ListEntries(ctx, "hopper", "checkpoint")
	require.NoError(t, err)
	require.Len(t, ckpt, 1)
	assert.Equal(t, 2, ckpt[0].Checkpoints)

	misc, err := store.ListEntries(ctx, "hopper", "misc")
	require.NoError(t, err)
	require.Len(t, misc, 1)
	assert.Equal(t, 2, misc[0].Files)
	assert.NotNil(t, misc[0].LastModified)

	t.Run("removed runs are pruned", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(filepath.Join(root, "log/hopper/adhoc")))

		_, err := idx.Index(ctx, "hopper")
		require.NoError(t, err)

		logs, err := store.ListEntries(ctx, "hopper", "log")
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})
}

func TestIndexer_UnkeyedFilesKeepSeparateRows(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "results/hopper/adhoc/return.png", "png")
	writeFile(t, root, "results/hopper/adhoc/notes.txt", "notes")

	store := setupTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	log := newTestLogger()
	idx := catalog.NewIndexer(log, store, query.NewQuerier(log), root, nil)

	ctx := context.Background()

	n, err := idx.Index(ctx, "hopper")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	misc, err := store.ListEntries(ctx, "hopper", "misc")
	require.NoError(t, err)
	require.Len(t, misc, 2)

	adhoc := filepath.Join(root, "results/hopper/adhoc")
	assert.Equal(t, filepath.Join(adhoc, "notes.txt"), misc[0].RunKey)
	assert.Equal(t, filepath.Join(adhoc, "return.png"), misc[1].RunKey)

	for _, e := range misc {
		assert.False(t, e.Keyed)
		assert.Equal(t, adhoc, e.Dirname)
		assert.Equal(t, 1, e.Files)
	}

	// A second pass keeps both rows.
	_, err = idx.Index(ctx, "hopper")
	require.NoError(t, err)

	misc, err = store.ListEntries(ctx, "hopper", "misc")
	require.NoError(t, err)
	assert.Len(t, misc, 2)
}

func TestIndexer_StartStop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "log/hopper/2022/08/10/12-00-00-000001/progress.csv", "x\n")

	store := setupTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	log := newTestLogger()
	idx := catalog.NewIndexer(log, store, query.NewQuerier(log), root, nil)

	require.Error(t, idx.Start(context.Background(), []string{"hopper"}, 0))

	require.NoError(t, idx.Start(context.Background(), []string{"hopper"}, time.Hour))

	require.Eventually(t, func() bool {
		entries, err := store.ListEntries(context.Background(), "hopper", "log")

		return err == nil && len(entries) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, idx.Stop())
	require.NoError(t, idx.Stop())
}
