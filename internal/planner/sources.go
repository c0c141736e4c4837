package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/fortistack/dispatchplanner/pkg/catalog"
	"github.com/fortistack/dispatchplanner/pkg/duration"
	"github.com/fortistack/dispatchplanner/pkg/nodepool"
)

// fetchOutcome collects the joined results of the three independent
// source fetches (catalog, duration, live inventory), fanned out
// concurrently and joined before allocation begins (spec §5).
type fetchOutcome struct {
	normalized []catalog.Normalized
	warnings   []string
	err        error

	durations *duration.Store

	liveNodes []string
	liveErr   error
}

func fetchSources(ctx context.Context, logger log.Logger, cfg Config) fetchOutcome {
	var wg sync.WaitGroup
	var cat catalogOutcome
	var dur durationOutcome
	var live liveOutcome

	wg.Add(1)
	go func() {
		defer wg.Done()
		cat = fetchCatalog(ctx, logger, cfg)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dur = fetchDuration(ctx, logger, cfg)
	}()

	if cfg.UseJenkinsNodes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			live = fetchLiveNodes(ctx, cfg)
		}()
	}

	wg.Wait()

	out := fetchOutcome{
		warnings:  append(append([]string{}, cat.warnings...), dur.warnings...),
		durations: dur.store,
		liveNodes: live.nodes,
		liveErr:   live.err,
	}
	if cat.err != nil {
		out.err = cat.err
		return out
	}
	out.normalized = cat.records
	if dur.err != nil {
		out.err = dur.err
		return out
	}
	return out
}

type catalogOutcome struct {
	records  []catalog.Normalized
	warnings []string
	err      error
}

func fetchCatalog(ctx context.Context, logger log.Logger, cfg Config) catalogOutcome {
	if !cfg.NoAPI && cfg.APIURL != "" {
		out := loadAndNormalize(ctx, logger, catalog.Source{
			URL:         cfg.APIURL,
			BearerToken: cfg.APIToken,
			Username:    cfg.APIUser,
			Password:    cfg.APIPass,
		})
		if out.err == nil {
			return out
		}
		_ = level.Warn(logger).Log("msg", "catalog API fetch failed, falling back to file", "err", out.err)
		if cfg.FeatureListPath == "" {
			return out
		}
	}

	if cfg.FeatureListPath == "" {
		return catalogOutcome{err: errors.New("planner: no catalog source configured")}
	}
	return loadAndNormalize(ctx, logger, catalog.Source{Path: cfg.FeatureListPath})
}

func loadAndNormalize(ctx context.Context, logger log.Logger, src catalog.Source) catalogOutcome {
	recs, warnings, err := catalog.Load(ctx, logger, src)
	if err != nil {
		return catalogOutcome{err: err, warnings: warnings}
	}

	normalized := make([]catalog.Normalized, 0, len(recs))
	for _, rec := range recs {
		n, err := catalog.Normalize(rec)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("planner: skipping unparseable catalog record: %s", err))
			continue
		}
		normalized = append(normalized, n)
	}
	return catalogOutcome{records: normalized, warnings: warnings}
}

type durationOutcome struct {
	store *duration.Store
	err   error
}

func fetchDuration(ctx context.Context, logger log.Logger, cfg Config) durationOutcome {
	if !cfg.NoMongo && cfg.MongoURI != "" {
		store, err := duration.LoadFromMongo(ctx, logger, duration.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
			Release:    cfg.Release,
		})
		switch {
		case err == nil && !store.Empty():
			return durationOutcome{store: store}
		case err != nil:
			_ = level.Warn(logger).Log("msg", "duration store query failed, falling back to file", "err", err)
		default:
			_ = level.Warn(logger).Log("msg", "duration store query returned no observations, falling back to file")
		}
		if cfg.DurationsPath == "" {
			if err != nil {
				return durationOutcome{err: err}
			}
			return durationOutcome{store: store}
		}
	}

	if cfg.DurationsPath == "" {
		return durationOutcome{err: fmt.Errorf("planner: no duration source configured")}
	}
	store, err := duration.LoadFromFile(cfg.DurationsPath)
	if err != nil {
		return durationOutcome{err: err}
	}
	return durationOutcome{store: store}
}

type liveOutcome struct {
	nodes []string
	err   error
}

func fetchLiveNodes(ctx context.Context, cfg Config) liveOutcome {
	nodes, err := nodepool.FetchIdle(ctx, nodepool.LiveConfig{
		URL:      cfg.InventoryURL,
		Username: cfg.InventoryUser,
		Token:    cfg.InventoryToken,
	})
	return liveOutcome{nodes: nodes, err: err}
}
