package cluster

import (
	"fmt"
	"math"
	"strings"
)

// Metric names a pairwise distance function.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric resolves a configured metric name.
func ParseMetric(name string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(name))); m {
	case MetricCosine, MetricEuclidean:
		return m, nil
	case "":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// Distances is a condensed (upper triangle, row major) pairwise distance
// matrix over n observations. It is read-only once built.
type Distances struct {
	n      int
	metric Metric
	d      []float64
}

// Len returns the number of observations.
func (m *Distances) Len() int { return m.n }

// Metric returns the metric the matrix was computed with.
func (m *Distances) Metric() Metric { return m.metric }

// At returns the distance between observations i and j.
func (m *Distances) At(i, j int) float64 {
	if i == j {
		return 0
	}
	if i > j {
		i, j = j, i
	}
	return m.d[condensedIndex(m.n, i, j)]
}

func condensedIndex(n, i, j int) int {
	return n*i - i*(i+1)/2 + (j - i - 1)
}

// PairwiseDistances validates vectors and computes every pairwise distance.
func PairwiseDistances(vectors [][]float32, metric Metric) (*Distances, error) {
	if err := validateVectors(vectors, metric); err != nil {
		return nil, err
	}

	n := len(vectors)
	m := &Distances{
		n:      n,
		metric: metric,
		d:      make([]float64, n*(n-1)/2),
	}

	switch metric {
	case MetricCosine:
		norms := make([]float64, n)
		for i, v := range vectors {
			norms[i] = math.Sqrt(dot(v, v))
		}
		k := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				m.d[k] = cosineDistance(vectors[i], vectors[j], norms[i], norms[j])
				k++
			}
		}
	case MetricEuclidean:
		k := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				m.d[k] = euclideanDistance(vectors[i], vectors[j])
				k++
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	return m, nil
}

func validateVectors(vectors [][]float32, metric Metric) error {
	if len(vectors) < 2 {
		return fmt.Errorf("%w: got %d", ErrInsufficientData, len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}

	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		var norm float64
		for _, x := range v {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: vector %d has non-finite values", ErrInvalidVector, i)
			}
			norm += f * f
		}
		if metric == MetricCosine && norm == 0 {
			return fmt.Errorf("%w: vector %d has zero magnitude", ErrInvalidVector, i)
		}
	}

	return nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// cosineDistance is 1 - cos(a, b), clipped to [0, 2] against rounding.
func cosineDistance(a, b []float32, normA, normB float64) float64 {
	d := 1 - dot(a, b)/(normA*normB)
	return math.Min(math.Max(d, 0), 2)
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
