package cluster

import (
	"fmt"
	"math"

	"newscluster/internal/domain"
)

// Similarity computes the pairwise similarity matrix between two sets of
// vectors, rows for a and columns for b.
type Similarity interface {
	Similarity(a, b [][]float32) ([][]float64, error)
}

// CosineSimilarity implements Similarity with plain cosine similarity.
type CosineSimilarity struct{}

func (CosineSimilarity) Similarity(a, b [][]float32) ([][]float64, error) {
	normsB := make([]float64, len(b))
	for j, v := range b {
		normsB[j] = math.Sqrt(dot(v, v))
	}

	out := make([][]float64, len(a))
	for i, u := range a {
		normU := math.Sqrt(dot(u, u))
		out[i] = make([]float64, len(b))
		for j, v := range b {
			if len(u) != len(v) {
				return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(u), len(v))
			}
			if normU == 0 || normsB[j] == 0 {
				continue
			}
			out[i][j] = dot(u, v) / (normU * normsB[j])
		}
	}
	return out, nil
}

// Inspection is the debug view of one cluster.
type Inspection struct {
	Label    int
	Articles []domain.Article
	Matrix   [][]float64
}

// Cohesion is the mean off-diagonal similarity, or 1 for a single member.
func (in *Inspection) Cohesion() float64 {
	n := len(in.Matrix)
	if n < 2 {
		return 1
	}
	var sum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				sum += in.Matrix[i][j]
			}
		}
	}
	return sum / float64(n*(n-1))
}

// Inspect gathers the articles carrying label and scores their vectors
// against each other with sim. Neither input is modified.
func Inspect(articles []domain.Article, vectors [][]float32, label int, sim Similarity) (*Inspection, error) {
	if len(articles) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors for %d articles", ErrDimensionMismatch, len(vectors), len(articles))
	}

	var members []domain.Article
	var memberVectors [][]float32
	for i, a := range articles {
		if a.Label == label {
			members = append(members, a)
			memberVectors = append(memberVectors, vectors[i])
		}
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrLabelNotFound, label)
	}

	matrix, err := sim.Similarity(memberVectors, memberVectors)
	if err != nil {
		return nil, fmt.Errorf("similarity for label %d: %w", label, err)
	}

	return &Inspection{Label: label, Articles: members, Matrix: matrix}, nil
}
