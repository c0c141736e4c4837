// Command dispatchplanner computes a test-workload dispatch plan: which
// node runs which feature groups, and emits the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/fortistack/dispatchplanner/internal/envdefault"
	"github.com/fortistack/dispatchplanner/internal/planner"
	"github.com/fortistack/dispatchplanner/pkg/catalog"
	"github.com/fortistack/dispatchplanner/pkg/filter"
	"github.com/fortistack/dispatchplanner/pkg/nodepool"
)

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	a := kingpin.New("dispatchplanner", "Computes a test-workload dispatch plan.")
	logLevel := a.Flag("log.level", "The level of logging. One of 'debug', 'info', 'warn', 'error'.").
		Default("info").Enum("debug", "info", "warn", "error")
	listenAddress := a.Flag("web.listen-address", "Address to serve /metrics on; empty disables the server.").
		Default(envdefault.WithDefaultString("DISPATCHPLANNER_LISTEN_ADDRESS", "")).String()

	var opts options
	opts.setupFlags(a)

	a.HelpFlag.Short('h')

	if _, err := a.Parse(os.Args[1:]); err != nil {
		_ = level.Error(logger).Log("msg", "error parsing command line arguments", "err", err)
		a.Usage(os.Args[1:])
		os.Exit(2)
	}

	switch strings.ToLower(*logLevel) {
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	cfg, err := opts.toConfig()
	if err != nil {
		_ = level.Error(logger).Log("msg", "invalid command line argument", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	var g run.Group
	ctx, cancel := context.WithCancel(context.Background())

	if *listenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *listenAddress, Handler: mux}
		g.Add(func() error {
			_ = level.Info(logger).Log("msg", "serving metrics", "address", *listenAddress)
			return srv.ListenAndServe()
		}, func(error) {
			_ = srv.Close()
		})
	}

	g.Add(func() error {
		defer cancel()
		// On success Run has already logged every collected warning;
		// only the summary is logged here.
		result, err := planner.Run(ctx, logger, cfg)
		if err != nil {
			return err
		}
		_ = level.Info(logger).Log("msg", "dispatch plan generated", "records", len(result.Records))
		return nil
	}, func(error) {
		cancel()
	})

	if err := g.Run(); err != nil {
		_ = level.Error(logger).Log("msg", "dispatch planning failed", "err", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a planning error to the exit code contract of
// spec.md §6: 1 for runtime/configuration failures, 2 reserved for CLI
// parse errors (handled earlier, before Run is ever called).
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// options holds the raw flag values before they're translated into
// planner.Config.
type options struct {
	featureList string
	apiURL      string
	apiUser     string
	apiPass     string
	apiToken    string
	noAPI       bool

	durationsPath   string
	mongoURI        string
	mongoDatabase   string
	mongoCollection string
	release         string
	noMongo         bool

	nodes           string
	useJenkinsNodes bool
	inventoryURL    string
	inventoryUser   string
	inventoryToken  string
	excludeNodes    string
	reservedNodes   string

	features    string
	exclude     string
	groupChoice string
	groupFilter string

	administrators  string
	staticBindings  string
	submitOverrides string
	policyFile      string

	output  string
	mirrors string
}

func (o *options) setupFlags(a *kingpin.Application) {
	a.Flag("feature-list", "Catalog file path (fallback).").Short('l').StringVar(&o.featureList)
	a.Flag("api-url", "Catalog HTTP endpoint.").
		Default(envdefault.WithDefaultString("DISPATCHPLANNER_API_URL", "")).StringVar(&o.apiURL)
	a.Flag("no-api", "Disable the catalog HTTP endpoint.").BoolVar(&o.noAPI)
	a.Flag("api-user", "Catalog HTTP endpoint username.").StringVar(&o.apiUser)
	a.Flag("api-pass", "Catalog HTTP endpoint password.").StringVar(&o.apiPass)
	a.Flag("api-token", "Catalog HTTP endpoint bearer token.").StringVar(&o.apiToken)

	a.Flag("durations", "Duration JSON fallback path.").Short('d').StringVar(&o.durationsPath)
	a.Flag("mongo-uri", "Duration document store URI.").
		Default(envdefault.WithDefaultString("DISPATCHPLANNER_MONGO_URI", "")).StringVar(&o.mongoURI)
	a.Flag("mongo-db", "Duration document store database.").StringVar(&o.mongoDatabase)
	a.Flag("mongo-collection", "Duration document store collection.").StringVar(&o.mongoCollection)
	a.Flag("release", "Optional release filter for the duration document store.").StringVar(&o.release)
	a.Flag("no-mongo", "Disable the duration document store.").BoolVar(&o.noMongo)

	a.Flag("nodes", "Defined node pool spec (supports <prefix><m>-<prefix><n> ranges).").Short('n').StringVar(&o.nodes)
	a.Flag("use-jenkins-nodes", "Fetch the live idle-node inventory from the CI controller.").Short('a').BoolVar(&o.useJenkinsNodes)
	a.Flag("inventory-url", "CI controller base URL for the live idle-node inventory.").
		Default(envdefault.WithDefaultString("DISPATCHPLANNER_INVENTORY_URL", "")).StringVar(&o.inventoryURL)
	a.Flag("inventory-user", "CI controller API username.").StringVar(&o.inventoryUser)
	a.Flag("inventory-token", "CI controller API token.").StringVar(&o.inventoryToken)
	a.Flag("exclude-nodes", "Comma-separated nodes to exclude.").Short('x').StringVar(&o.excludeNodes)
	a.Flag("reserved-nodes", "Comma-separated nodes to reserve (never dispatched to).").Short('r').StringVar(&o.reservedNodes)

	a.Flag("features", "Comma-separated feature include patterns.").Short('f').StringVar(&o.features)
	a.Flag("exclude", "Comma-separated feature exclude patterns.").Short('e').StringVar(&o.exclude)
	a.Flag("group-choice", "Group-suffix filter: all, crit, full, or tmp.").Short('g').Default("all").StringVar(&o.groupChoice)
	a.Flag("group-filter", "Comma-separated group exclude patterns.").StringVar(&o.groupFilter)

	a.Flag("administrators", "Comma-separated administrator email addresses always copied on SEND_TO.").StringVar(&o.administrators)
	a.Flag("static-bindings", "JSON object mapping feature name to an ordered list of bound node names.").StringVar(&o.staticBindings)
	a.Flag("submit-overrides", "JSON object mapping feature name to an oriole submit-flag override.").StringVar(&o.submitOverrides)

	a.Flag("output", "Dispatch output path.").Short('o').Default("dispatch.json").StringVar(&o.output)
	a.Flag("output-mirrors", "Comma-separated additional paths to mirror the dispatch output to.").StringVar(&o.mirrors)

	a.Flag("policy.file", "Optional YAML file supplying administrators, static bindings, and submit overrides in place of the equivalent flags.").StringVar(&o.policyFile)
}

// policy is the YAML shape accepted by --policy.file. It exists so
// operators can keep administrator lists and static-binding tables out
// of shell invocations, the way rule-evaluator's --config.file keeps
// its rule groups out of flags.
type policy struct {
	Administrators  []string                      `yaml:"administrators"`
	StaticBindings  map[string][]string           `yaml:"staticBindings"`
	SubmitOverrides map[string]catalog.SubmitFlag `yaml:"submitOverrides"`
}

func loadPolicyFile(path string) (policy, error) {
	var p policy
	content, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read --policy.file: %w", err)
	}
	if err := yaml.Unmarshal(content, &p); err != nil {
		return p, fmt.Errorf("unmarshal --policy.file: %w", err)
	}
	return p, nil
}

func (o *options) toConfig() (planner.Config, error) {
	if err := filter.ValidGroupSuffix(o.groupChoice); err != nil {
		return planner.Config{}, err
	}

	var staticBindings map[string][]string
	if o.staticBindings != "" {
		if err := json.Unmarshal([]byte(o.staticBindings), &staticBindings); err != nil {
			return planner.Config{}, fmt.Errorf("parse --static-bindings: %w", err)
		}
	}

	var submitOverrides map[string]catalog.SubmitFlag
	if o.submitOverrides != "" {
		if err := json.Unmarshal([]byte(o.submitOverrides), &submitOverrides); err != nil {
			return planner.Config{}, fmt.Errorf("parse --submit-overrides: %w", err)
		}
	}

	administrators := splitComma(o.administrators)

	if o.policyFile != "" {
		p, err := loadPolicyFile(o.policyFile)
		if err != nil {
			return planner.Config{}, err
		}
		if len(administrators) == 0 {
			administrators = p.Administrators
		}
		if staticBindings == nil {
			staticBindings = p.StaticBindings
		}
		if submitOverrides == nil {
			submitOverrides = p.SubmitOverrides
		}
	}

	definedNodes, warnings := nodepool.ParseDefinedSpec(o.nodes)
	_ = warnings // surfaced by planner.Run via the same parse, kept here only to validate --nodes early
	if len(definedNodes) == 0 && o.nodes != "" {
		return planner.Config{}, errors.New("--nodes did not resolve to any node names")
	}

	return planner.Config{
		FeatureListPath: o.featureList,
		APIURL:          o.apiURL,
		APIUser:         o.apiUser,
		APIPass:         o.apiPass,
		APIToken:        o.apiToken,
		NoAPI:           o.noAPI,

		DurationsPath:   o.durationsPath,
		MongoURI:        o.mongoURI,
		MongoDatabase:   o.mongoDatabase,
		MongoCollection: o.mongoCollection,
		Release:         o.release,
		NoMongo:         o.noMongo,

		NodesSpec:       o.nodes,
		UseJenkinsNodes: o.useJenkinsNodes,
		InventoryURL:    o.inventoryURL,
		InventoryUser:   o.inventoryUser,
		InventoryToken:  o.inventoryToken,
		ExcludeNodes:    splitComma(o.excludeNodes),
		ReservedNodes:   splitComma(o.reservedNodes),

		IncludeFeatures: splitComma(o.features),
		ExcludeFeatures: splitComma(o.exclude),
		GroupChoice:     o.groupChoice,
		GroupFilter:     splitComma(o.groupFilter),

		Administrators:  administrators,
		SubmitOverrides: submitOverrides,
		StaticBindings:  staticBindings,

		OutputPath:  o.output,
		MirrorPaths: splitComma(o.mirrors),
	}, nil
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
