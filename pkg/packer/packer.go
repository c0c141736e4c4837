// Package packer implements greedy longest-processing-time-first (LPT)
// bin packing of a feature's test groups across its allocated nodes.
package packer

import "sort"

// Bin is one packed bucket: its groups in packing order and their summed
// duration.
type Bin struct {
	Groups  []string
	Seconds int
}

// Pack splits groupSeconds into binCount bins using greedy LPT: groups are
// sorted by duration descending (ties broken by name ascending), and each
// is placed into the bin with the smallest running total (ties broken by
// lowest bin index). An empty input or non-positive binCount yields an
// empty bin list.
func Pack(groupSeconds map[string]int, binCount int) []Bin {
	if len(groupSeconds) == 0 || binCount <= 0 {
		return nil
	}

	names := make([]string, 0, len(groupSeconds))
	for name := range groupSeconds {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := groupSeconds[names[i]], groupSeconds[names[j]]
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})

	bins := make([]Bin, binCount)
	for _, name := range names {
		target := 0
		for i := 1; i < len(bins); i++ {
			if bins[i].Seconds < bins[target].Seconds {
				target = i
			}
		}
		bins[target].Groups = append(bins[target].Groups, name)
		bins[target].Seconds += groupSeconds[name]
	}
	return bins
}
