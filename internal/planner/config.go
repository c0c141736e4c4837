// Package planner wires CatalogLoader, DurationStore, NodePoolResolver,
// Filter, Allocator, BinPacker, PlacementResolver, and DispatchEmitter
// into one run (spec §4, §5, §7).
package planner

import "github.com/fortistack/dispatchplanner/pkg/catalog"

// Config parameterizes one planning run, mirroring the CLI surface of
// spec.md §6.
type Config struct {
	// Catalog source.
	FeatureListPath string
	APIURL          string
	APIUser         string
	APIPass         string
	APIToken        string
	NoAPI           bool

	// Duration source.
	DurationsPath   string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	Release         string
	NoMongo         bool

	// Node pool.
	NodesSpec       string
	UseJenkinsNodes bool
	InventoryURL    string
	InventoryUser   string
	InventoryToken  string
	ExcludeNodes    []string
	ReservedNodes   []string

	// Filter.
	IncludeFeatures []string
	ExcludeFeatures []string
	GroupChoice     string
	GroupFilter     []string

	// Administration.
	Administrators  []string
	SubmitOverrides map[string]catalog.SubmitFlag
	StaticBindings  map[string][]string

	// Output.
	OutputPath  string
	MirrorPaths []string
}
