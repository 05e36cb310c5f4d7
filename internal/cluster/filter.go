package cluster

import (
	"fmt"
	"sort"

	"newscluster/internal/domain"
)

// DefaultMinClusterSize keeps clusters reported by more than one source.
const DefaultMinClusterSize = 2

// AssignLabels returns copies of articles with Label set from labels.
func AssignLabels(articles []domain.Article, labels []int) ([]domain.Article, error) {
	if len(articles) != len(labels) {
		return nil, fmt.Errorf("%w: %d labels for %d articles", ErrDimensionMismatch, len(labels), len(articles))
	}
	out := make([]domain.Article, len(articles))
	for i, a := range articles {
		a.Label = labels[i]
		out[i] = a
	}
	return out, nil
}

// SelectTopClusters keeps the articles whose label is shared by at least
// minSize articles, preserving input order. A minSize below 2 falls back to
// DefaultMinClusterSize.
func SelectTopClusters(articles []domain.Article, minSize int) []domain.Article {
	if minSize < DefaultMinClusterSize {
		minSize = DefaultMinClusterSize
	}

	counts := make(map[int]int)
	for _, a := range articles {
		counts[a.Label]++
	}

	kept := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if counts[a.Label] >= minSize {
			kept = append(kept, a)
		}
	}
	return kept
}

// GroupByLabel groups articles into clusters ordered by label. Article
// order inside a cluster follows the input.
func GroupByLabel(articles []domain.Article) []domain.Cluster {
	byLabel := make(map[int][]domain.Article)
	for _, a := range articles {
		byLabel[a.Label] = append(byLabel[a.Label], a)
	}

	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	clusters := make([]domain.Cluster, 0, len(labels))
	for _, l := range labels {
		clusters = append(clusters, domain.Cluster{Label: l, Articles: byLabel[l]})
	}
	return clusters
}
