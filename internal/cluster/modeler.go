// Package cluster groups embedded news articles into story clusters with
// complete-linkage agglomerative clustering, picks the cut threshold that
// maximizes the mean silhouette, and drops stories covered only once.
//
// Everything here is pure computation over in-memory inputs.
package cluster

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"newscluster/internal/domain"
)

// Options configures a Modeler.
type Options struct {
	Method         Method
	Metric         Metric
	Range          ThresholdRange
	Workers        int
	MinClusterSize int
}

func DefaultOptions() Options {
	return Options{
		Method:         MethodComplete,
		Metric:         MetricCosine,
		Range:          DefaultThresholdRange(),
		MinClusterSize: DefaultMinClusterSize,
	}
}

// Result is the outcome of Modeler.Run.
type Result struct {
	// Labeled holds every input article with its cluster label.
	Labeled []domain.Article
	// Important is the subset of Labeled in clusters of MinClusterSize or more.
	Important []domain.Article
	Selection *Selection
}

// KeptClusters returns the number of distinct labels in Important.
func (r *Result) KeptClusters() int {
	labels := make([]int, len(r.Important))
	for i, a := range r.Important {
		labels[i] = a.Label
	}
	return NumClusters(labels)
}

// Modeler runs linkage, threshold selection and filtering for one batch.
type Modeler struct {
	opts Options
}

func NewModeler(opts Options) *Modeler {
	if opts.Method == "" {
		opts.Method = MethodComplete
	}
	if opts.Metric == "" {
		opts.Metric = MetricCosine
	}
	if opts.Range == (ThresholdRange{}) {
		opts.Range = DefaultThresholdRange()
	}
	return &Modeler{opts: opts}
}

// Run clusters articles using vectors, which must be index-aligned with
// articles. Nothing is returned on failure.
func (m *Modeler) Run(vectors [][]float32, articles []domain.Article) (*Result, error) {
	if len(vectors) != len(articles) {
		return nil, fmt.Errorf("%w: %d vectors for %d articles", ErrDimensionMismatch, len(vectors), len(articles))
	}
	if err := checkMethodMetric(m.opts.Method, m.opts.Metric); err != nil {
		return nil, err
	}

	dist, err := PairwiseDistances(vectors, m.opts.Metric)
	if err != nil {
		return nil, err
	}

	tree, err := LinkageFromDistances(dist, m.opts.Method)
	if err != nil {
		return nil, fmt.Errorf("compute linkage: %w", err)
	}

	selector := NewSelector(m.opts.Range, m.opts.Metric, m.opts.Workers)
	selection, err := selector.SelectFromDistances(dist, tree)
	if err != nil {
		return nil, fmt.Errorf("select threshold: %w", err)
	}

	log.Info().
		Float64("threshold", selection.Threshold).
		Float64("silhouette", selection.Score).
		Int("clusters", selection.NumClusters).
		Int("articles", len(articles)).
		Msg("Finished clustering")

	labeled, err := AssignLabels(articles, selection.Labels)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Labeled:   labeled,
		Important: SelectTopClusters(labeled, m.opts.MinClusterSize),
		Selection: selection,
	}

	log.Info().
		Int("articles", len(result.Important)).
		Int("clusters", result.KeptClusters()).
		Msg("Selected clusters with more than one source")

	return result, nil
}
