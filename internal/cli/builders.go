package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"newscluster/config"
	"newscluster/internal/adapter/embedding"
	"newscluster/internal/adapter/llm"
	"newscluster/internal/adapter/source"
	"newscluster/internal/adapter/store"
	"newscluster/internal/domain"
	"newscluster/internal/port"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// newSource opens the article source named by source.type.
func newSource(cfg *config.Config, dir string) (port.ArticleSource, error) {
	sc := cfg.Source
	switch sc.Type {
	case "postgres":
		dsn := os.Getenv(sc.DSNEnv)
		if dsn == "" {
			dsn = source.PostgresDSNFromEnv()
		}
		if dsn == "" {
			return nil, fmt.Errorf("set %s or POSTGRES_HOST to reach the article database", sc.DSNEnv)
		}
		return source.OpenSQL("pgx", dsn, sc.Table)
	case "sqlite":
		dsn := os.Getenv(sc.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("set %s to the sqlite database path", sc.DSNEnv)
		}
		return source.OpenSQL("sqlite", dsn, sc.Table)
	case "file":
		root := dir
		if p := os.Getenv(sc.DSNEnv); p != "" {
			root = p
		}
		if !filepath.IsAbs(root) {
			root = filepath.Join(dir, root)
		}
		return source.NewFileSource(root, sc.Includes, sc.Excludes, sc.Delimiter), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", sc.Type)
	}
}

// openState opens the bbolt state file under dir and brings it up to date.
func openState(cfg *config.Config, dir string) (*store.BoltStore, error) {
	if err := config.EnsureStateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", config.StateDirName, err)
	}

	st, err := store.NewBoltStore(config.StateDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	res, err := st.Migrate(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if res.NeedsMigration {
		log.Info().
			Int("from", res.OldVersion).
			Int("to", res.NewVersion).
			Bool("cache_reset", res.NeedsCacheReset).
			Str("reason", res.Reason).
			Msg("Migrated state store")
	}
	return st, nil
}

// newEmbedder builds the configured embedder, wrapped by the persistent
// cache when one is given and embedding.cache is on.
func newEmbedder(cfg *config.Config, cache port.EmbeddingCache) (port.Embedder, error) {
	ec := cfg.Embedding
	emb, err := embedding.New(embedding.Options{
		Provider:          ec.Provider,
		Model:             ec.Model,
		BaseURL:           ec.BaseURL,
		APIKeyEnv:         ec.APIKeyEnv,
		Dimension:         ec.Dimension,
		BatchSize:         ec.BatchSize,
		RequestsPerSecond: ec.RequestsPerSecond,
		MaxRetries:        ec.MaxRetries,
		Timeout:           seconds(ec.TimeoutSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if ec.Cache && cache != nil {
		return embedding.NewCachedEmbedder(emb, cache), nil
	}
	return emb, nil
}

func newLLM(cfg *config.Config) *llm.LlamaCppClient {
	sc := cfg.Summarize
	return llm.NewLlamaCppClient(llm.Options{
		BaseURL:           sc.APIURL,
		APIKey:            os.Getenv(sc.APIKeyEnv),
		Model:             sc.Model,
		NPredict:          sc.NPredict,
		Temperature:       sc.Temperature,
		MaxRetries:        sc.MaxRetries,
		RequestsPerSecond: sc.RequestsPerSecond,
		Timeout:           seconds(sc.TimeoutSeconds),
		JSONSchema:        llm.SummarySchema,
	})
}

// findRun returns the run with runID or, when runID is empty, the latest
// run recorded for the window start picked by date or lookbackDays.
func findRun(runs port.RunStore, runID, date string, lookbackDays int, now time.Time) (domain.RunRecord, error) {
	if runID != "" {
		return runs.GetRun(runID)
	}
	day, err := windowStart(now, date, lookbackDays)
	if err != nil {
		return domain.RunRecord{}, err
	}
	return runs.LatestRun(day.Format(time.DateOnly))
}

func outputDir(cfg *config.Config, dir string) string {
	if cfg.Output.Dir == "" || filepath.IsAbs(cfg.Output.Dir) {
		return cfg.Output.Dir
	}
	return filepath.Join(dir, cfg.Output.Dir)
}
