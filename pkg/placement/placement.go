// Package placement assigns allocator node counts and static bindings to
// concrete node names, producing the node/group-bin pairs DispatchEmitter
// renders (spec §4.8).
package placement

import (
	"errors"
	"fmt"

	"github.com/fortistack/dispatchplanner/pkg/packer"
)

// ErrStaticConflict is returned when two static bindings claim the same
// node.
var ErrStaticConflict = errors.New("placement: two static features are bound to the same node")

// StaticBinding maps a feature name to its ordered list of bound node
// names.
type StaticBinding map[string][]string

// Feature is the minimal shape Resolve needs: a name, its surviving
// groups (by duration), and its allocator-assigned node count.
type Feature struct {
	Name           string
	GroupSeconds   map[string]int
	AllocatedNodes int
}

// Placement is one node's assignment: a feature and the ordered group
// bin it should run.
type Placement struct {
	Node    string
	Feature string
	Groups  []string
	Seconds int
}

// Warning describes a non-fatal shortfall encountered while placing
// dynamic features.
type Warning struct {
	Feature string
	Message string
}

// Resolve partitions features into static (those present in bindings)
// and dynamic groups, places static features onto their bound nodes
// first, then streams dynamic features onto the remaining available
// nodes in order.
func Resolve(features []Feature, available []string, bindings StaticBinding) ([]Placement, []Warning, error) {
	var static, dynamic []Feature
	for _, f := range features {
		if _, ok := bindings[f.Name]; ok {
			static = append(static, f)
		} else {
			dynamic = append(dynamic, f)
		}
	}

	availableSet := make(map[string]struct{}, len(available))
	for _, n := range available {
		availableSet[n] = struct{}{}
	}

	var placements []Placement
	used := make(map[string]struct{})

	for _, f := range static {
		bound := bindings[f.Name]
		var intersection []string
		for _, n := range bound {
			if _, ok := availableSet[n]; !ok {
				continue
			}
			if _, claimed := used[n]; claimed {
				return nil, nil, fmt.Errorf("%w: node %q is bound to more than one static feature", ErrStaticConflict, n)
			}
			intersection = append(intersection, n)
		}
		if len(intersection) == 0 {
			continue
		}
		for _, n := range intersection {
			used[n] = struct{}{}
		}

		bins := packer.Pack(f.GroupSeconds, len(intersection))
		for i, bin := range bins {
			if len(bin.Groups) == 0 {
				continue
			}
			placements = append(placements, Placement{
				Node:    intersection[i],
				Feature: f.Name,
				Groups:  bin.Groups,
				Seconds: bin.Seconds,
			})
		}
	}

	var dynamicPool []string
	for _, n := range available {
		if _, claimed := used[n]; !claimed {
			dynamicPool = append(dynamicPool, n)
		}
	}

	var warnings []Warning
	cursor := 0
	for _, f := range dynamic {
		count := f.AllocatedNodes
		bins := packer.Pack(f.GroupSeconds, count)
		for _, bin := range bins {
			if len(bin.Groups) == 0 {
				continue
			}
			if cursor >= len(dynamicPool) {
				warnings = append(warnings, Warning{
					Feature: f.Name,
					Message: fmt.Sprintf("insufficient nodes: skipping remaining bins for %q", f.Name),
				})
				break
			}
			placements = append(placements, Placement{
				Node:    dynamicPool[cursor],
				Feature: f.Name,
				Groups:  bin.Groups,
				Seconds: bin.Seconds,
			})
			cursor++
		}
	}

	return placements, warnings, nil
}
