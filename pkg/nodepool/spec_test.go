package nodepool

import "testing"

func TestParseDefinedSpecExpandsRange(t *testing.T) {
	names, warnings := ParseDefinedSpec("node10-node12")
	want := []string{"node10", "node11", "node12"}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestParseDefinedSpecPassesThroughSingleTokens(t *testing.T) {
	names, _ := ParseDefinedSpec("node1, node2 ,node3")
	want := []string{"node1", "node2", "node3"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestParseDefinedSpecMismatchedPrefixWarns(t *testing.T) {
	names, warnings := ParseDefinedSpec("node1-worker9")
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	if len(names) != 1 || names[0] != "node1-worker9" {
		t.Errorf("names = %v, want literal pass-through", names)
	}
}

func TestParseDefinedSpecEmpty(t *testing.T) {
	names, warnings := ParseDefinedSpec("")
	if len(names) != 0 || len(warnings) != 0 {
		t.Errorf("ParseDefinedSpec(\"\") = %v, %v, want both empty", names, warnings)
	}
}
