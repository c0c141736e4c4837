package planner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture %s: %s", name, err)
	}
	return path
}

func TestRunEndToEndSingleFeatureFourNodes(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"F","test_groups":["g1","g2","g3","g4"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"F": {"g1": "1 hr", "g2": "1 hr", "g3": "1 hr", "g4": "1 hr"}
	}`)
	outputPath := filepath.Join(dir, "dispatch.json")

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1,node2,node3,node4",
		OutputPath:      outputPath,
	}

	result, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Records, 4)

	seenNodes := map[string]bool{}
	for _, r := range result.Records {
		require.Falsef(t, seenNodes[r.NodeName], "node %q used twice", r.NodeName)
		seenNodes[r.NodeName] = true
		require.Equal(t, "F", r.FeatureName)
	}

	body, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, 4)
}

func TestRunDropsExcludedFeatures(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"keep","test_groups":["g1"]},
		{"feature_name":"drop","test_groups":["g1"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"keep": {"g1": "1 hr"}, "drop": {"g1": "1 hr"}
	}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1",
		ExcludeFeatures: []string{"drop"},
	}

	result, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, "keep", result.Records[0].FeatureName)
}

func TestRunStaticBindingConflictFails(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"A","test_groups":["g1"]},
		{"feature_name":"B","test_groups":["g1"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"A": {"g1": "1 hr"}, "B": {"g1": "1 hr"}
	}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1",
		StaticBindings: map[string][]string{
			"A": {"node1"},
			"B": {"node1"},
		},
	}
	_, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.Error(t, err)
}

func TestRunInsufficientNodesWarns(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"F1","test_groups":["g1","g2"]},
		{"feature_name":"F2","test_groups":["g1","g2"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"F1": {"g1": "1 hr", "g2": "1 hr"}, "F2": {"g1": "1 hr", "g2": "1 hr"}
	}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1",
	}
	result, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	require.Len(t, result.Records, 1)
}

func TestRunGroupSuffixFilterKeepsOnlyMatchingGroups(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"F","test_groups":["suite.crit","suite.full"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"F": {"suite.crit": "1 hr", "suite.full": "1 hr"}
	}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1",
		GroupChoice:     "crit",
	}
	result, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, []string{"suite.crit"}, result.Records[0].TestGroups)
}

func TestRunFuzzyIncludePatternMatchesByWildcard(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"network-basic","test_groups":["g1"]},
		{"feature_name":"storage-basic","test_groups":["g1"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"network-basic": {"g1": "1 hr"}, "storage-basic": {"g1": "1 hr"}
	}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1",
		IncludeFeatures: []string{"network*"},
	}
	result, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, "network-basic", result.Records[0].FeatureName)
}

func TestRunGroupChoiceLeavingNoFeaturesFails(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[
		{"feature_name":"F","test_groups":["suite.tmp"]}
	]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{
		"F": {"suite.tmp": "1 hr"}
	}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
		NodesSpec:       "node1",
		GroupChoice:     "crit",
	}
	_, err := Run(context.Background(), log.NewNopLogger(), cfg)
	require.Error(t, err)
}

func TestRunMissingNodeSourceFails(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "catalog.json", `[{"feature_name":"F","test_groups":["g1"]}]`)
	durationsPath := writeFixture(t, dir, "durations.json", `{"F": {"g1": "1 hr"}}`)

	cfg := Config{
		FeatureListPath: catalogPath,
		DurationsPath:   durationsPath,
	}
	_, err := Run(context.Background(), log.NewNopLogger(), cfg)
	if err == nil {
		t.Fatal("expected error when no node source is configured")
	}
}
