package cluster

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Method names the inter-cluster distance used while merging.
type Method string

const (
	MethodSingle   Method = "single"
	MethodComplete Method = "complete"
	MethodAverage  Method = "average"
	MethodWeighted Method = "weighted"
	MethodWard     Method = "ward"
)

// ParseMethod resolves a configured linkage method name.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case MethodSingle, MethodComplete, MethodAverage, MethodWeighted, MethodWard:
		return m, nil
	case "":
		return MethodComplete, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Merge is one agglomeration step. Leaves are numbered 0..N-1 and the
// cluster created by step i gets id N+i.
type Merge struct {
	Left     int
	Right    int
	Distance float64
	Size     int
}

// Linkage is the merge tree over N leaves: N-1 merges ordered by
// non-decreasing distance.
type Linkage struct {
	N      int
	Method Method
	Metric Metric
	Merges []Merge
}

// ComputeLinkage builds the agglomerative merge tree for vectors.
func ComputeLinkage(vectors [][]float32, method Method, metric Metric) (*Linkage, error) {
	if err := checkMethodMetric(method, metric); err != nil {
		return nil, err
	}
	dist, err := PairwiseDistances(vectors, metric)
	if err != nil {
		return nil, err
	}
	return LinkageFromDistances(dist, method)
}

// LinkageFromDistances builds the merge tree from a precomputed matrix.
func LinkageFromDistances(dist *Distances, method Method) (*Linkage, error) {
	if err := checkMethodMetric(method, dist.Metric()); err != nil {
		return nil, err
	}
	if dist.Len() < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, dist.Len())
	}

	merges := nnChain(dist, method)

	// nn-chain emits merges out of order; the tree needs them by distance.
	sort.SliceStable(merges, func(i, j int) bool {
		return merges[i].Distance < merges[j].Distance
	})
	relabel(merges, dist.Len())

	return &Linkage{
		N:      dist.Len(),
		Method: method,
		Metric: dist.Metric(),
		Merges: merges,
	}, nil
}

func checkMethodMetric(method Method, metric Metric) error {
	switch method {
	case MethodSingle, MethodComplete, MethodAverage, MethodWeighted:
	case MethodWard:
		if metric != MetricEuclidean {
			return fmt.Errorf("%w: ward needs euclidean, got %q", ErrIncompatibleMetric, metric)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	switch metric {
	case MetricCosine, MetricEuclidean:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
}

// nnChain runs the nearest-neighbour chain algorithm on a working copy of
// the distance matrix. Merge endpoints are slot indices, not node ids.
func nnChain(dist *Distances, method Method) []Merge {
	n := dist.Len()
	d := make([]float64, len(dist.d))
	copy(d, dist.d)

	at := func(i, j int) float64 {
		if i > j {
			i, j = j, i
		}
		return d[condensedIndex(n, i, j)]
	}
	set := func(i, j int, v float64) {
		if i > j {
			i, j = j, i
		}
		d[condensedIndex(n, i, j)] = v
	}

	size := make([]int, n)
	for i := range size {
		size[i] = 1
	}

	chain := make([]int, 0, n)
	merges := make([]Merge, 0, n-1)

	for k := 0; k < n-1; k++ {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if size[i] > 0 {
					chain = append(chain, i)
					break
				}
			}
		}

		var x, y int
		var current float64
		for {
			x = chain[len(chain)-1]
			current = math.Inf(1)
			if len(chain) > 1 {
				y = chain[len(chain)-2]
				current = at(x, y)
			}

			for i := 0; i < n; i++ {
				if size[i] == 0 || i == x {
					continue
				}
				if v := at(x, i); v < current {
					current = v
					y = i
				}
			}

			if len(chain) > 1 && y == chain[len(chain)-2] {
				break
			}
			chain = append(chain, y)
		}

		chain = chain[:len(chain)-2]

		if x > y {
			x, y = y, x
		}
		nx, ny := size[x], size[y]
		merges = append(merges, Merge{Left: x, Right: y, Distance: current, Size: nx + ny})

		// Slot y now holds the merged cluster.
		size[x] = 0
		size[y] = nx + ny
		for i := 0; i < n; i++ {
			ni := size[i]
			if ni == 0 || i == y {
				continue
			}
			set(i, y, lanceWilliams(method, at(i, x), at(i, y), current, nx, ny, ni))
		}
	}

	return merges
}

// lanceWilliams returns the distance from cluster i to the union of x and y.
func lanceWilliams(method Method, dxi, dyi, dxy float64, nx, ny, ni int) float64 {
	fx, fy, fi := float64(nx), float64(ny), float64(ni)
	switch method {
	case MethodSingle:
		return math.Min(dxi, dyi)
	case MethodAverage:
		return (fx*dxi + fy*dyi) / (fx + fy)
	case MethodWeighted:
		return 0.5 * (dxi + dyi)
	case MethodWard:
		t := 1.0 / (fx + fy + fi)
		return math.Sqrt(math.Max(0, (fi+fx)*t*dxi*dxi+(fi+fy)*t*dyi*dyi-fi*t*dxy*dxy))
	default:
		return math.Max(dxi, dyi)
	}
}

// relabel rewrites slot indices into node ids so every merge refers to the
// clusters that existed at that point of the sorted sequence.
func relabel(merges []Merge, n int) {
	uf := newUnionFind(n)
	for i := range merges {
		x, y := uf.find(merges[i].Left), uf.find(merges[i].Right)
		if x > y {
			x, y = y, x
		}
		merges[i].Left, merges[i].Right = x, y
		merges[i].Size = uf.merge(x, y)
	}
}

type unionFind struct {
	parent []int
	size   []int
	next   int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, 2*n-1),
		size:   make([]int, 2*n-1),
		next:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

func (uf *unionFind) merge(x, y int) int {
	uf.parent[x] = uf.next
	uf.parent[y] = uf.next
	size := uf.size[x] + uf.size[y]
	uf.size[uf.next] = size
	uf.next++
	return size
}

// maxDistances returns, per merge, the largest merge distance inside the
// subtree. It equals Merge.Distance for monotone linkages.
func (l *Linkage) maxDistances() []float64 {
	md := make([]float64, len(l.Merges))
	for i, m := range l.Merges {
		d := m.Distance
		if m.Left >= l.N && md[m.Left-l.N] > d {
			d = md[m.Left-l.N]
		}
		if m.Right >= l.N && md[m.Right-l.N] > d {
			d = md[m.Right-l.N]
		}
		md[i] = d
	}
	return md
}
