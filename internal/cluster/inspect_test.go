package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscluster/internal/domain"
)

type recordingSimilarity struct {
	a, b [][]float32
	err  error
}

func (r *recordingSimilarity) Similarity(a, b [][]float32) ([][]float64, error) {
	r.a, r.b = a, b
	if r.err != nil {
		return nil, r.err
	}
	out := make([][]float64, len(a))
	for i := range out {
		out[i] = make([]float64, len(b))
		for j := range out[i] {
			out[i][j] = 0.5
		}
	}
	return out, nil
}

func TestInspect(t *testing.T) {
	articles := labeled(1, 2, 1, 2)
	vectors := [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}, {0.1, 0.9}}
	sim := &recordingSimilarity{}

	in, err := Inspect(articles, vectors, 2, sim)
	require.NoError(t, err)

	assert.Equal(t, 2, in.Label)
	assert.Equal(t, []string{"b", "d"}, ids(in.Articles))
	assert.Equal(t, [][]float32{{0, 1}, {0.1, 0.9}}, sim.a)
	assert.Equal(t, sim.a, sim.b)
	assert.InDelta(t, 0.5, in.Cohesion(), 1e-12)

	// Inputs are left alone.
	assert.Equal(t, labeled(1, 2, 1, 2), articles)
}

func TestInspect_Errors(t *testing.T) {
	articles := labeled(1, 1)
	vectors := [][]float32{{1, 0}, {0, 1}}

	_, err := Inspect(articles, vectors, 7, CosineSimilarity{})
	assert.ErrorIs(t, err, ErrLabelNotFound)

	_, err = Inspect(articles, vectors[:1], 1, CosineSimilarity{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	boom := errors.New("boom")
	_, err = Inspect(articles, vectors, 1, &recordingSimilarity{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestCosineSimilarity(t *testing.T) {
	m, err := CosineSimilarity{}.Similarity(
		[][]float32{{1, 0}, {0, 2}},
		[][]float32{{3, 0}, {1, 1}, {0, 0}},
	)
	require.NoError(t, err)

	assert.InDelta(t, 1, m[0][0], 1e-9)
	assert.InDelta(t, 0.70710678, m[0][1], 1e-6)
	assert.Zero(t, m[0][2])
	assert.InDelta(t, 0, m[1][0], 1e-9)

	_, err = CosineSimilarity{}.Similarity([][]float32{{1, 0}}, [][]float32{{1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestInspection_CohesionSingleMember(t *testing.T) {
	in := &Inspection{Articles: []domain.Article{{ID: "a"}}, Matrix: [][]float64{{1}}}
	assert.Equal(t, 1.0, in.Cohesion())
}
