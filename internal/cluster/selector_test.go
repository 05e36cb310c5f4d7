package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioVectors holds two tight pairs and one outlier. Pair distances are
// about 0.05 and 0.08; everything else is orthogonal.
func scenarioVectors() [][]float32 {
	return [][]float32{
		{1, 0, 0, 0, 0},
		{0.95, 0.31225, 0, 0, 0},
		{0, 0, 1, 0, 0},
		{0, 0, 0.92, 0.391918, 0},
		{0, 0, 0, 0, 1},
	}
}

func TestThresholdRange_Candidates(t *testing.T) {
	c := DefaultThresholdRange().Candidates()
	require.Len(t, c, 30)
	assert.InDelta(t, 0.10, c[0], 1e-12)
	assert.InDelta(t, 0.39, c[len(c)-1], 1e-12)
	for i := 1; i < len(c); i++ {
		assert.Greater(t, c[i], c[i-1])
	}

	c = ThresholdRange{Start: 0.2, Stop: 0.3, Step: 0.05}.Candidates()
	assert.Equal(t, []float64{0.2, 0.25}, c)
}

func TestThresholdRange_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholdRange().Validate())
	assert.ErrorIs(t, ThresholdRange{Start: 0.1, Stop: 0.4, Step: 0}.Validate(), ErrInvalidRange)
	assert.ErrorIs(t, ThresholdRange{Start: 0.4, Stop: 0.1, Step: 0.01}.Validate(), ErrInvalidRange)
	assert.Nil(t, ThresholdRange{Start: 0.4, Stop: 0.4, Step: 0.01}.Candidates())
}

func TestSelectBestDistance_Scenario(t *testing.T) {
	vectors := scenarioVectors()
	tree, err := ComputeLinkage(vectors, MethodComplete, MetricCosine)
	require.NoError(t, err)

	sel, err := NewSelector(DefaultThresholdRange(), MetricCosine, 0).SelectBestDistance(vectors, tree)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 2, 2, 3}, sel.Labels)
	assert.Equal(t, 3, sel.NumClusters)
	// Every candidate cuts the same way, so the smallest threshold wins.
	assert.InDelta(t, 0.10, sel.Threshold, 1e-12)
	assert.InDelta(t, (0.95+0.95+0.92+0.92)/5, sel.Score, 1e-4)

	require.Len(t, sel.Candidates, 30)
	for _, c := range sel.Candidates {
		assert.True(t, c.Valid)
		assert.Equal(t, sel.Score, c.Score)
	}
}

func TestSelectBestDistance_WinnerHasMaxScore(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0}, {0.97, 0.2, 0}, {0.9, 0.3, 0.1},
		{0, 1, 0}, {0.1, 0.95, 0.1}, {0.2, 0.85, 0.3},
		{0, 0, 1}, {0.1, 0.2, 0.95},
	}
	tree, err := ComputeLinkage(vectors, MethodComplete, MetricCosine)
	require.NoError(t, err)

	sel, err := NewSelector(ThresholdRange{Start: 0.01, Stop: 0.9, Step: 0.01}, MetricCosine, 4).
		SelectBestDistance(vectors, tree)
	require.NoError(t, err)

	firstBest := -1
	for i, c := range sel.Candidates {
		if !c.Valid {
			continue
		}
		assert.LessOrEqual(t, c.Score, sel.Score)
		if firstBest < 0 && c.Score == sel.Score {
			firstBest = i
		}
	}
	require.GreaterOrEqual(t, firstBest, 0)
	assert.Equal(t, sel.Candidates[firstBest].Threshold, sel.Threshold)
	assert.Equal(t, Cut(tree, sel.Threshold), sel.Labels)
}

func TestSelectBestDistance_Deterministic(t *testing.T) {
	vectors := scenarioVectors()
	tree, err := ComputeLinkage(vectors, MethodComplete, MetricCosine)
	require.NoError(t, err)

	serial, err := NewSelector(DefaultThresholdRange(), MetricCosine, 1).SelectBestDistance(vectors, tree)
	require.NoError(t, err)
	parallel, err := NewSelector(DefaultThresholdRange(), MetricCosine, 8).SelectBestDistance(vectors, tree)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestSelectBestDistance_NoValidThreshold(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
	}{
		{
			name:    "near duplicates collapse into one cluster",
			vectors: [][]float32{{1, 0}, {0.999, 0.01}, {0.998, 0.02}},
		},
		{
			name:    "orthogonal documents never merge",
			vectors: [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		},
		{
			name:    "two documents",
			vectors: [][]float32{{1, 0}, {0.99, 0.1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := ComputeLinkage(tt.vectors, MethodComplete, MetricCosine)
			require.NoError(t, err)

			_, err = NewSelector(DefaultThresholdRange(), MetricCosine, 0).SelectBestDistance(tt.vectors, tree)
			assert.ErrorIs(t, err, ErrNoValidThreshold)
		})
	}
}

func TestSelectBestDistance_TreeMismatch(t *testing.T) {
	tree, err := ComputeLinkage(line(), MethodComplete, MetricEuclidean)
	require.NoError(t, err)

	_, err = NewSelector(DefaultThresholdRange(), MetricEuclidean, 0).SelectBestDistance(scenarioVectors(), tree)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewSelector(DefaultThresholdRange(), "", 0).SelectBestDistance(line(), nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSelectBestDistance_UsesTreeMetric(t *testing.T) {
	vectors := scenarioVectors()
	tree, err := ComputeLinkage(vectors, MethodComplete, MetricCosine)
	require.NoError(t, err)

	_, err = NewSelector(DefaultThresholdRange(), MetricEuclidean, 0).SelectBestDistance(vectors, tree)
	assert.ErrorIs(t, err, ErrIncompatibleMetric)

	euclidean, err := PairwiseDistances(vectors, MetricEuclidean)
	require.NoError(t, err)
	_, err = NewSelector(DefaultThresholdRange(), "", 0).SelectFromDistances(euclidean, tree)
	assert.ErrorIs(t, err, ErrIncompatibleMetric)

	// An unset metric follows the tree.
	sel, err := NewSelector(DefaultThresholdRange(), "", 0).SelectBestDistance(vectors, tree)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2, 3}, sel.Labels)
	assert.InDelta(t, 0.748, sel.Score, 1e-3)
}

func TestTwoDocumentBoundaries(t *testing.T) {
	candidates := DefaultThresholdRange().Candidates()
	lowest, highest := candidates[0], candidates[len(candidates)-1]

	nearPair := [][]float32{{1, 0}, {0.95, 0.31225}}
	near, err := ComputeLinkage(nearPair, MethodComplete, MetricCosine)
	require.NoError(t, err)
	require.Len(t, near.Merges, 1)
	assert.InDelta(t, 0.05, near.Merges[0].Distance, 1e-3)
	assert.Equal(t, []int{1, 1}, Cut(near, lowest))

	farPair := [][]float32{{1, 0}, {0.5, 0.8660254}}
	far, err := ComputeLinkage(farPair, MethodComplete, MetricCosine)
	require.NoError(t, err)
	require.Len(t, far.Merges, 1)
	assert.InDelta(t, 0.5, far.Merges[0].Distance, 1e-3)
	split := Cut(far, highest)
	assert.Equal(t, []int{1, 2}, split)

	// Both singletons are dropped by the filter.
	articles, err := AssignLabels(labeled(0, 0), split)
	require.NoError(t, err)
	assert.Empty(t, SelectTopClusters(articles, DefaultMinClusterSize))

	selector := NewSelector(DefaultThresholdRange(), MetricCosine, 0)
	_, err = selector.SelectBestDistance(nearPair, near)
	assert.ErrorIs(t, err, ErrNoValidThreshold)
	_, err = selector.SelectBestDistance(farPair, far)
	assert.ErrorIs(t, err, ErrNoValidThreshold)
}
