package planner

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/fortistack/dispatchplanner/pkg/allocator"
	"github.com/fortistack/dispatchplanner/pkg/catalog"
	"github.com/fortistack/dispatchplanner/pkg/dispatch"
	"github.com/fortistack/dispatchplanner/pkg/filter"
	"github.com/fortistack/dispatchplanner/pkg/nodepool"
	"github.com/fortistack/dispatchplanner/pkg/placement"
)

// Result is the outcome of one planning run.
type Result struct {
	Records  []dispatch.Record
	Warnings []string
}

// Run executes the full CatalogLoader -> FeatureMerger -> DurationStore
// -> NodePoolResolver -> Filter -> Allocator -> BinPacker ->
// PlacementResolver -> DispatchEmitter pipeline.
func Run(ctx context.Context, logger log.Logger, cfg Config) (Result, error) {
	fetch := fetchSources(ctx, logger, cfg)
	if fetch.err != nil {
		return Result{}, fetch.err
	}
	warnings := append([]string{}, fetch.warnings...)

	merger := catalog.NewMerger(cfg.Administrators)
	features := merger.Merge(fetch.normalized)

	defined, defWarnings := nodepool.ParseDefinedSpec(cfg.NodesSpec)
	warnings = append(warnings, defWarnings...)

	resolver := &nodepool.Resolver{
		Reserved:     toSet(cfg.ReservedNodes),
		ExcludeExtra: toSet(cfg.ExcludeNodes),
		FetchLive: func(context.Context) ([]string, error) {
			return fetch.liveNodes, fetch.liveErr
		},
	}
	available, err := resolver.Resolve(ctx, defined, cfg.UseJenkinsNodes)
	if err != nil {
		return Result{}, err
	}

	filterFeatures := make([]filter.Feature, 0, len(features))
	for _, f := range features {
		filterFeatures = append(filterFeatures, filter.Feature{Name: f.Name, Groups: append([]string{}, f.TestGroups...)})
	}
	groupChoice := cfg.GroupChoice
	if groupChoice == "" {
		groupChoice = string(filter.GroupSuffixAll)
	}
	filtered, err := filter.Apply(filterFeatures, filter.Config{
		Include:      cfg.IncludeFeatures,
		Exclude:      cfg.ExcludeFeatures,
		GroupSuffix:  filter.GroupSuffix(groupChoice),
		GroupExclude: cfg.GroupFilter,
	})
	if err != nil {
		return Result{}, err
	}

	byName := make(map[string]catalog.FeatureRecord, len(features))
	for _, f := range features {
		byName[f.Name] = f
	}

	durations := make([]int, len(filtered))
	groupCounts := make([]int, len(filtered))
	perGroup := make([]map[string]int, len(filtered))
	for i, f := range filtered {
		total, pg := fetch.durations.TotalSeconds(f.Name, f.Groups)
		durations[i] = total
		groupCounts[i] = len(f.Groups)
		perGroup[i] = pg
	}

	counts := allocator.Allocate(durations, groupCounts, len(available))

	placementFeatures := make([]placement.Feature, len(filtered))
	for i, f := range filtered {
		placementFeatures[i] = placement.Feature{
			Name:           f.Name,
			GroupSeconds:   perGroup[i],
			AllocatedNodes: counts[i],
		}
	}

	placements, placeWarnings, err := placement.Resolve(placementFeatures, available, cfg.StaticBindings)
	if err != nil {
		return Result{}, err
	}
	for _, w := range placeWarnings {
		warnings = append(warnings, fmt.Sprintf("planner: %s: %s", w.Feature, w.Message))
	}

	emitter := &dispatch.Emitter{
		Features:        byName,
		Administrators:  cfg.Administrators,
		SubmitOverrides: cfg.SubmitOverrides,
	}
	records := emitter.Emit(placements)

	if cfg.OutputPath != "" {
		if err := dispatch.Write(cfg.OutputPath, records, cfg.MirrorPaths); err != nil {
			return Result{}, err
		}
	}

	for _, w := range warnings {
		_ = level.Warn(logger).Log("msg", w)
	}

	return Result{Records: records, Warnings: warnings}, nil
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}
