package packer

import "testing"

func TestPackS1EqualGroups(t *testing.T) {
	groups := map[string]int{"g1": 3600, "g2": 3600, "g3": 3600, "g4": 3600}
	bins := Pack(groups, 4)
	if len(bins) != 4 {
		t.Fatalf("len(bins) = %d, want 4", len(bins))
	}
	want := []string{"g1", "g2", "g3", "g4"}
	for i, bin := range bins {
		if len(bin.Groups) != 1 || bin.Groups[0] != want[i] {
			t.Errorf("bin[%d] = %v, want [%s]", i, bin.Groups, want[i])
		}
	}
}

func TestPackAssignsToSmallestBin(t *testing.T) {
	groups := map[string]int{"big": 100, "medium": 60, "small": 40, "tiny": 10}
	bins := Pack(groups, 2)
	total0, total1 := bins[0].Seconds, bins[1].Seconds
	diff := total0 - total1
	if diff < 0 {
		diff = -diff
	}
	if diff > 40 {
		t.Errorf("bins unbalanced: %d vs %d", total0, total1)
	}
	for _, bin := range bins {
		for i := 1; i < len(bin.Groups); i++ {
			if groups[bin.Groups[i-1]] < groups[bin.Groups[i]] {
				t.Errorf("bin not applied in descending-duration encounter order")
			}
		}
	}
}

func TestPackTieBreakByName(t *testing.T) {
	groups := map[string]int{"b": 100, "a": 100}
	bins := Pack(groups, 2)
	if bins[0].Groups[0] != "a" || bins[1].Groups[0] != "b" {
		t.Errorf("tie-break order wrong: %v, %v", bins[0].Groups, bins[1].Groups)
	}
}

func TestPackEmptyOrNonPositiveBins(t *testing.T) {
	if got := Pack(map[string]int{}, 3); got != nil {
		t.Errorf("Pack(empty) = %v, want nil", got)
	}
	if got := Pack(map[string]int{"a": 1}, 0); got != nil {
		t.Errorf("Pack(bins=0) = %v, want nil", got)
	}
}

func TestPackConservesGroups(t *testing.T) {
	groups := map[string]int{"a": 10, "b": 20, "c": 5, "d": 40}
	bins := Pack(groups, 3)
	seen := map[string]bool{}
	for _, bin := range bins {
		for _, g := range bin.Groups {
			seen[g] = true
		}
	}
	if len(seen) != len(groups) {
		t.Errorf("got %d distinct groups across bins, want %d", len(seen), len(groups))
	}
}
