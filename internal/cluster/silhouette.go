package cluster

import (
	"fmt"
	"math"
)

// Silhouette returns the mean silhouette coefficient of labels.
//
// For document i, a is its mean distance to the rest of its own cluster and
// b the smallest mean distance to any other cluster; s(i) = (b-a)/max(a,b).
// Members of singleton clusters score 0, as does a zero denominator.
// Labelings with one cluster, or one cluster per document, return
// ErrDegenerateLabeling.
func Silhouette(dist *Distances, labels []int) (float64, error) {
	n := dist.Len()
	if len(labels) != n {
		return 0, fmt.Errorf("%w: %d labels for %d documents", ErrDimensionMismatch, len(labels), n)
	}

	index := make(map[int]int)
	dense := make([]int, n)
	var counts []int
	for i, l := range labels {
		c, ok := index[l]
		if !ok {
			c = len(counts)
			index[l] = c
			counts = append(counts, 0)
		}
		dense[i] = c
		counts[c]++
	}

	k := len(counts)
	if k < 2 || k > n-1 {
		return 0, fmt.Errorf("%w: %d clusters for %d documents", ErrDegenerateLabeling, k, n)
	}

	sums := make([]float64, k)
	var total float64
	for i := 0; i < n; i++ {
		own := dense[i]
		if counts[own] == 1 {
			continue
		}

		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j != i {
				sums[dense[j]] += dist.At(i, j)
			}
		}

		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c, s := range sums {
			if c == own {
				continue
			}
			if mean := s / float64(counts[c]); mean < b {
				b = mean
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}

	return total / float64(n), nil
}
