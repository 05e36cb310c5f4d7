package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscluster/internal/domain"
)

func scenarioArticles() []domain.Article {
	posted := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return []domain.Article{
		{ID: "1", Title: "Floods in Kinshasa", Content: "Heavy rain floods Kinshasa.", PostedAt: posted},
		{ID: "2", Title: "Kinshasa under water", Content: "Kinshasa hit by floods after rain.", PostedAt: posted},
		{ID: "3", Title: "Election results", Content: "Commission publishes provisional results.", PostedAt: posted},
		{ID: "4", Title: "Provisional results out", Content: "Provisional results were published.", PostedAt: posted},
		{ID: "5", Title: "Football", Content: "Leopards win friendly.", PostedAt: posted},
	}
}

func TestModelerRun(t *testing.T) {
	articles := scenarioArticles()

	res, err := NewModeler(DefaultOptions()).Run(scenarioVectors(), articles)
	require.NoError(t, err)

	require.Len(t, res.Labeled, 5)
	assert.Equal(t, []int{1, 1, 2, 2, 3}, []int{
		res.Labeled[0].Label, res.Labeled[1].Label, res.Labeled[2].Label,
		res.Labeled[3].Label, res.Labeled[4].Label,
	})
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(res.Important))
	assert.Equal(t, 2, res.KeptClusters())
	assert.InDelta(t, 0.10, res.Selection.Threshold, 1e-12)
	assert.Equal(t, 3, res.Selection.NumClusters)

	for _, a := range articles {
		assert.Zero(t, a.Label)
	}
}

func TestModelerRun_ZeroOptionsUseDefaults(t *testing.T) {
	res, err := NewModeler(Options{}).Run(scenarioVectors(), scenarioArticles())
	require.NoError(t, err)
	assert.Len(t, res.Important, 4)
}

func TestModelerRun_MinClusterSize(t *testing.T) {
	opts := DefaultOptions()
	opts.MinClusterSize = 3

	res, err := NewModeler(opts).Run(scenarioVectors(), scenarioArticles())
	require.NoError(t, err)
	assert.Empty(t, res.Important)
	assert.Len(t, res.Labeled, 5)
}

func TestModelerRun_Errors(t *testing.T) {
	m := NewModeler(DefaultOptions())

	_, err := m.Run(scenarioVectors()[:4], scenarioArticles())
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = m.Run(scenarioVectors()[:2], scenarioArticles()[:2])
	assert.ErrorIs(t, err, ErrNoValidThreshold)

	_, err = m.Run(scenarioVectors()[:1], scenarioArticles()[:1])
	assert.ErrorIs(t, err, ErrInsufficientData)

	opts := DefaultOptions()
	opts.Method = MethodWard
	_, err = NewModeler(opts).Run(scenarioVectors(), scenarioArticles())
	assert.ErrorIs(t, err, ErrIncompatibleMetric)
}
