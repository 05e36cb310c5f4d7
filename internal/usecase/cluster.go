package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"newscluster/internal/adapter/export"
	"newscluster/internal/cluster"
	"newscluster/internal/domain"
	"newscluster/internal/port"
)

// ErrNoArticles is returned when the source has nothing for the window.
var ErrNoArticles = errors.New("no articles to cluster")

// ProgressFunc reports embedding progress.
type ProgressFunc func(done, total int)

// ClusterUseCase runs one batch: pull, dedupe, embed, cluster, persist and
// export.
type ClusterUseCase struct {
	source    port.ArticleSource
	embedder  port.Embedder
	runs      port.RunStore
	modeler   *cluster.Modeler
	opts      cluster.Options
	outputDir string
	batchSize int
	now       func() time.Time
}

// NewClusterUseCase creates a new cluster use case. An empty outputDir
// disables the CSV export.
func NewClusterUseCase(
	source port.ArticleSource,
	embedder port.Embedder,
	runs port.RunStore,
	opts cluster.Options,
	outputDir string,
	batchSize int,
) *ClusterUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ClusterUseCase{
		source:    source,
		embedder:  embedder,
		runs:      runs,
		modeler:   cluster.NewModeler(opts),
		opts:      opts,
		outputDir: outputDir,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// ClusterResult contains the results of a clustering batch.
type ClusterResult struct {
	Run        domain.RunRecord
	Pulled     int
	Unique     int
	Selection  *cluster.Selection
	ExportPath string
}

// Cluster processes every article posted since the given time.
func (u *ClusterUseCase) Cluster(ctx context.Context, since time.Time, progress ProgressFunc) (*ClusterResult, error) {
	pulled, err := u.source.Pull(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to pull articles: %w", err)
	}

	articles := DedupeByContent(pulled)
	if len(articles) == 0 {
		return nil, ErrNoArticles
	}
	log.Info().
		Int("pulled", len(pulled)).
		Int("unique", len(articles)).
		Msg("Deduplicated articles by content")

	vectors, err := u.embed(ctx, articles, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to embed articles: %w", err)
	}

	res, err := u.modeler.Run(vectors, articles)
	if err != nil {
		return nil, err
	}

	now := u.now()
	run := domain.RunRecord{
		ID:             uuid.NewString(),
		Date:           since.Format(time.DateOnly),
		CreatedAt:      now.UTC(),
		Threshold:      res.Selection.Threshold,
		Score:          res.Selection.Score,
		NumClusters:    res.Selection.NumClusters,
		KeptClusters:   res.KeptClusters(),
		Method:         string(u.methodName()),
		Metric:         string(u.metricName()),
		EmbeddingModel: u.embedder.ModelName(),
		TotalArticles:  len(articles),
		Articles:       res.Important,
	}
	if u.runs != nil {
		if err := u.runs.SaveRun(run); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
	}

	result := &ClusterResult{
		Run:       run,
		Pulled:    len(pulled),
		Unique:    len(articles),
		Selection: res.Selection,
	}

	if u.outputDir != "" {
		path := filepath.Join(u.outputDir, export.ClustersFileName(now, since))
		if err := export.WriteArticlesFile(path, res.Important); err != nil {
			return nil, fmt.Errorf("failed to export clusters: %w", err)
		}
		result.ExportPath = path
		log.Info().Str("path", path).Int("articles", len(res.Important)).Msg("Exported clusters")
	}

	return result, nil
}

func (u *ClusterUseCase) embed(ctx context.Context, articles []domain.Article, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, 0, len(articles))
	for i := 0; i < len(articles); i += u.batchSize {
		end := i + u.batchSize
		if end > len(articles) {
			end = len(articles)
		}

		texts := make([]string, 0, end-i)
		for _, a := range articles[i:end] {
			texts = append(texts, a.Content)
		}

		batch, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)

		if progress != nil {
			progress(end, len(articles))
		}
	}
	return vectors, nil
}

// Embed returns vectors for articles in order. The inspect command uses it
// to rebuild the vectors of a stored run.
func (u *ClusterUseCase) Embed(ctx context.Context, articles []domain.Article) ([][]float32, error) {
	return u.embed(ctx, articles, nil)
}

func (u *ClusterUseCase) methodName() cluster.Method {
	if u.opts.Method == "" {
		return cluster.MethodComplete
	}
	return u.opts.Method
}

func (u *ClusterUseCase) metricName() cluster.Metric {
	if u.opts.Metric == "" {
		return cluster.MetricCosine
	}
	return u.opts.Metric
}
