// Package allocator computes how many nodes each feature should receive,
// proportional to its estimated total duration and bounded by its group
// count.
package allocator

import "sort"

// Allocate assigns each feature i a node count c[i] such that:
//   - sum(c) = min(nodeCount, sum(min(raw_i, groupCounts_i)))
//   - c[i] >= 1
//   - c[i] <= max(1, groupCounts[i]) when groupCounts[i] > 0
//
// When there are more features than nodes, no count is lowered below 1,
// so every c[i] is 1 and sum(c) exceeds nodeCount.
//
// durations and groupCounts must have the same length as each other;
// nodeCount must be >= 1. The rotation and tie-break order below is part
// of the contract: given the same inputs, the result is byte-for-byte
// reproducible.
func Allocate(durations []int, groupCounts []int, nodeCount int) []int {
	n := len(durations)
	counts := make([]int, n)
	if n == 0 {
		return counts
	}

	total := sum(durations)
	if total == 0 {
		for i := range counts {
			counts[i] = 1
		}
		capByGroups(counts, groupCounts)
		return counts
	}

	raw := make([]float64, n)
	frac := make([]float64, n)
	for i, d := range durations {
		raw[i] = float64(d) / float64(total) * float64(nodeCount)
		base := float64(int(raw[i]))
		frac[i] = raw[i] - base
		counts[i] = maxInt(1, int(raw[i]))
	}

	s := sum(counts)
	switch {
	case s > nodeCount:
		overAllocate(counts, raw, s-nodeCount)
	case s < nodeCount:
		underAllocate(counts, frac, nodeCount-s)
	}

	capByGroups(counts, groupCounts)
	return counts
}

// overAllocate cyclically decrements the count of the index with the
// smallest raw allocation among those still above 1, removing an index
// from rotation once its count reaches 1.
func overAllocate(counts []int, raw []float64, excess int) {
	candidates := candidateIndices(counts, func(c int) bool { return c > 1 })
	sort.SliceStable(candidates, func(a, b int) bool {
		return raw[candidates[a]] < raw[candidates[b]]
	})

	i := 0
	for excess > 0 && len(candidates) > 0 {
		pos := i % len(candidates)
		idx := candidates[pos]
		counts[idx]--
		excess--
		if counts[idx] == 1 {
			candidates = removeAt(candidates, pos)
		}
		i++
	}
}

// underAllocate cyclically increments the count of the index with the
// largest fractional part, ties broken by index.
func underAllocate(counts []int, frac []float64, deficit int) {
	candidates := candidateIndices(counts, func(int) bool { return true })
	sort.SliceStable(candidates, func(a, b int) bool {
		return frac[candidates[a]] > frac[candidates[b]]
	})

	for i := 0; deficit > 0; i++ {
		idx := candidates[i%len(candidates)]
		counts[idx]++
		deficit--
	}
}

func capByGroups(counts, groupCounts []int) {
	for i, g := range groupCounts {
		if g > 0 && counts[i] > g {
			counts[i] = g
		}
	}
}

func candidateIndices(counts []int, keep func(int) bool) []int {
	var out []int
	for i, c := range counts {
		if keep(c) {
			out = append(out, i)
		}
	}
	return out
}

func removeAt(s []int, i int) []int {
	return append(s[:i:i], s[i+1:]...)
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
