package cluster

// Cut flattens the merge tree at threshold: two leaves share a label iff the
// largest merge distance on the path joining them is <= threshold.
// Labels are 1-based and assigned in depth-first order from the root, so
// the same tree and threshold always yield the same labels.
func Cut(tree *Linkage, threshold float64) []int {
	if tree == nil || tree.N == 0 {
		return nil
	}
	n := tree.N
	labels := make([]int, n)
	if n == 1 {
		labels[0] = 1
		return labels
	}

	md := tree.maxDistances()
	visited := make([]bool, 2*n-1)
	stack := make([]int, 0, n)
	stack = append(stack, 2*n-2)

	leader := -1
	clusters := 0
	for len(stack) > 0 {
		root := stack[len(stack)-1] - n
		m := tree.Merges[root]

		if leader == -1 && md[root] <= threshold {
			leader = root
			clusters++
		}

		if m.Left >= n && !visited[m.Left] {
			visited[m.Left] = true
			stack = append(stack, m.Left)
			continue
		}
		if m.Right >= n && !visited[m.Right] {
			visited[m.Right] = true
			stack = append(stack, m.Right)
			continue
		}

		if m.Left < n {
			if leader == -1 {
				clusters++
			}
			labels[m.Left] = clusters
		}
		if m.Right < n {
			if leader == -1 {
				clusters++
			}
			labels[m.Right] = clusters
		}

		if leader == root {
			leader = -1
		}
		stack = stack[:len(stack)-1]
	}

	return labels
}

// NumClusters counts the distinct labels.
func NumClusters(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
