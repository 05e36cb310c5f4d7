package cluster

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ThresholdRange is the half-open sweep [Start, Stop) walked in Step
// increments. The defaults are tuned for cosine cuts over sentence
// embeddings; other models or metrics usually need a different band.
type ThresholdRange struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

// DefaultThresholdRange returns [0.10, 0.40) in steps of 0.01.
func DefaultThresholdRange() ThresholdRange {
	return ThresholdRange{Start: 0.10, Stop: 0.40, Step: 0.01}
}

// Validate reports whether the range yields at least one candidate.
func (r ThresholdRange) Validate() error {
	for _, v := range []float64{r.Start, r.Stop, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidRange)
		}
	}
	if r.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidRange, r.Step)
	}
	if r.Stop <= r.Start {
		return fmt.Errorf("%w: stop %g must exceed start %g", ErrInvalidRange, r.Stop, r.Start)
	}
	return nil
}

// Candidates lists the thresholds in ascending order. Each value is
// computed as Start + i*Step (not accumulated) and rounded to 1e-9.
func (r ThresholdRange) Candidates() []float64 {
	if r.Validate() != nil {
		return nil
	}
	count := int(math.Ceil((r.Stop-r.Start)/r.Step - 1e-9))
	out := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		t := math.Round((r.Start+float64(i)*r.Step)*1e9) / 1e9
		if t >= r.Stop {
			break
		}
		out = append(out, t)
	}
	return out
}

// CandidateScore is the outcome of cutting at one threshold.
type CandidateScore struct {
	Threshold   float64
	NumClusters int
	Score       float64
	Valid       bool
}

// Selection is the winning labeling of a threshold sweep.
type Selection struct {
	Labels      []int
	Threshold   float64
	Score       float64
	NumClusters int
	Candidates  []CandidateScore
}

// Selector sweeps cut thresholds and keeps the one with the best mean
// silhouette. Candidates are scored concurrently; the winner is the first
// strictly greater score in ascending threshold order.
//
// Silhouettes are always measured with the metric the tree was built
// with. Metric may be left empty; when set it must match the tree.
type Selector struct {
	Range   ThresholdRange
	Metric  Metric
	Workers int
}

func NewSelector(r ThresholdRange, metric Metric, workers int) *Selector {
	return &Selector{Range: r, Metric: metric, Workers: workers}
}

// SelectBestDistance scores every candidate cut of tree over vectors.
func (s *Selector) SelectBestDistance(vectors [][]float32, tree *Linkage) (*Selection, error) {
	metric, err := s.metricFor(tree)
	if err != nil {
		return nil, err
	}
	dist, err := PairwiseDistances(vectors, metric)
	if err != nil {
		return nil, err
	}
	return s.SelectFromDistances(dist, tree)
}

// SelectFromDistances is SelectBestDistance over a precomputed matrix.
func (s *Selector) SelectFromDistances(dist *Distances, tree *Linkage) (*Selection, error) {
	if err := s.Range.Validate(); err != nil {
		return nil, err
	}
	metric, err := s.metricFor(tree)
	if err != nil {
		return nil, err
	}
	if dist.Metric() != metric {
		return nil, fmt.Errorf("%w: %s distances for a %s tree", ErrIncompatibleMetric, dist.Metric(), metric)
	}
	if tree.N != dist.Len() {
		return nil, fmt.Errorf("%w: merge tree does not cover %d documents", ErrDimensionMismatch, dist.Len())
	}

	candidates := s.Range.Candidates()
	scores := make([]CandidateScore, len(candidates))
	labelings := make([][]int, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.workers())
	for i, t := range candidates {
		g.Go(func() error {
			labels := Cut(tree, t)
			scores[i] = CandidateScore{Threshold: t, NumClusters: NumClusters(labels)}

			score, err := Silhouette(dist, labels)
			if errors.Is(err, ErrDegenerateLabeling) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("threshold %.3f: %w", t, err)
			}
			scores[i].Score = score
			scores[i].Valid = true
			labelings[i] = labels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := -1
	maxScore := math.Inf(-1)
	for i, c := range scores {
		if c.Valid && c.Score > maxScore {
			maxScore = c.Score
			best = i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: %d candidates in [%.2f, %.2f) over %d documents",
			ErrNoValidThreshold, len(candidates), s.Range.Start, s.Range.Stop, dist.Len())
	}

	return &Selection{
		Labels:      labelings[best],
		Threshold:   scores[best].Threshold,
		Score:       scores[best].Score,
		NumClusters: scores[best].NumClusters,
		Candidates:  scores,
	}, nil
}

// metricFor returns the tree's metric, rejecting a conflicting Metric.
func (s *Selector) metricFor(tree *Linkage) (Metric, error) {
	if tree == nil {
		return "", fmt.Errorf("%w: no merge tree", ErrDimensionMismatch)
	}
	metric := tree.Metric
	if metric == "" {
		metric = MetricCosine
	}
	if s.Metric != "" && s.Metric != metric {
		return "", fmt.Errorf("%w: selector uses %s, tree was built with %s", ErrIncompatibleMetric, s.Metric, metric)
	}
	return metric, nil
}

func (s *Selector) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.GOMAXPROCS(0)
}
