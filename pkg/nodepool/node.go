// Package nodepool computes the available-node set for a dispatch run:
// a defined pool and/or a live Jenkins inventory, minus reserved and
// caller-excluded nodes (spec §4.4).
package nodepool

import (
	"regexp"
	"sort"
	"strconv"
)

var numericSuffix = regexp.MustCompile(`^(.*?)(\d+)$`)

// Node is an external compute resource, ordered by numeric suffix
// ascending, names without a numeric suffix sorting after lexicographically.
type Node struct {
	Name          string
	NumericSuffix int
	HasSuffix     bool
}

// NewNode derives a Node's numeric suffix from a trailing digit run, e.g.
// "node12" -> suffix 12.
func NewNode(name string) Node {
	m := numericSuffix.FindStringSubmatch(name)
	if m == nil {
		return Node{Name: name}
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Node{Name: name}
	}
	return Node{Name: name, NumericSuffix: n, HasSuffix: true}
}

// Sort orders nodes by numeric suffix ascending, then lexicographically;
// names without a numeric suffix sort after those with one.
func Sort(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.HasSuffix != b.HasSuffix {
			return a.HasSuffix
		}
		if a.HasSuffix && a.NumericSuffix != b.NumericSuffix {
			return a.NumericSuffix < b.NumericSuffix
		}
		return a.Name < b.Name
	})
}

// Names extracts Name fields from a sorted Node slice, in order.
func Names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

// SortNames sorts a plain name slice by the same ordering as Sort.
func SortNames(names []string) []string {
	nodes := make([]Node, len(names))
	for i, n := range names {
		nodes[i] = NewNode(n)
	}
	Sort(nodes)
	return Names(nodes)
}
