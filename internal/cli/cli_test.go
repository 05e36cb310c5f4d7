package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscluster/config"
	"newscluster/internal/adapter/embedding"
	"newscluster/internal/adapter/source"
	"newscluster/internal/adapter/store"
	"newscluster/internal/domain"
)

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)

	got, err := windowStart(now, "", 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = windowStart(now, "", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = windowStart(now, "2024-02-28", 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), got)

	_, err = windowStart(now, "28/02/2024", 0)
	assert.Error(t, err)

	_, err = windowStart(now, "", -1)
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	cfg.Source.Type = "file"
	cfg.Source.DSNEnv = "NEWSCLUSTER_TEST_FILES"
	t.Setenv("NEWSCLUSTER_TEST_FILES", "")
	src, err := newSource(cfg, dir)
	require.NoError(t, err)
	assert.IsType(t, &source.FileSource{}, src)

	cfg.Source.Type = "sqlite"
	cfg.Source.DSNEnv = "NEWSCLUSTER_TEST_DSN"
	t.Setenv("NEWSCLUSTER_TEST_DSN", "")
	_, err = newSource(cfg, dir)
	assert.Error(t, err)

	t.Setenv("NEWSCLUSTER_TEST_DSN", filepath.Join(dir, "news.db"))
	src, err = newSource(cfg, dir)
	require.NoError(t, err)
	assert.IsType(t, &source.SQLSource{}, src)
	require.NoError(t, src.Close())

	cfg.Source.Type = "kafka"
	_, err = newSource(cfg, dir)
	assert.Error(t, err)
}

func TestNewEmbedder_Cache(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 8

	st, err := openState(cfg, dir)
	require.NoError(t, err)
	defer st.Close()

	emb, err := newEmbedder(cfg, st)
	require.NoError(t, err)
	assert.IsType(t, &embedding.CachedEmbedder{}, emb)

	cfg.Embedding.Cache = false
	emb, err = newEmbedder(cfg, st)
	require.NoError(t, err)
	assert.IsType(t, &embedding.MockEmbedder{}, emb)
}

func TestOutputDir(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, filepath.Join("/work", "output"), outputDir(cfg, "/work"))

	cfg.Output.Dir = "/srv/news"
	assert.Equal(t, "/srv/news", outputDir(cfg, "/work"))

	cfg.Output.Dir = ""
	assert.Equal(t, "", outputDir(cfg, "/work"))
}

func TestFindRun_FollowsLookback(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	st, err := openState(cfg, t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)
	saved := domain.RunRecord{ID: "run-1", Date: "2024-03-02", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, st.SaveRun(saved))

	run, err := findRun(st, "", "", 3, now)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)

	_, err = findRun(st, "", "", 1, now)
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	run, err = findRun(st, "", "2024-03-02", 1, now)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)

	run, err = findRun(st, "run-1", "", 1, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", run.Date)
}
