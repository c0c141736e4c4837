package nodepool

import (
	"context"
	"errors"
)

// Sentinel errors, checked with errors.Is by callers.
var (
	ErrNoSource          = errors.New("nodepool: no defined pool and live fetching disabled")
	ErrEmptyIntersection = errors.New("nodepool: defined pool and live idle set do not intersect")
	ErrNoNodes           = errors.New("nodepool: no nodes remain after reserved/exclude filtering")
)

// Resolver computes the available-node set per spec §4.4's resolution
// table.
type Resolver struct {
	Reserved     map[string]struct{}
	ExcludeExtra map[string]struct{}

	// FetchLive performs the live inventory lookup; overridable for tests.
	FetchLive func(ctx context.Context) ([]string, error)
}

// Resolve computes the sorted available-node set from a parsed defined
// pool and the useLive flag.
func (r *Resolver) Resolve(ctx context.Context, defined []string, useLive bool) ([]string, error) {
	base, err := r.basePool(ctx, defined, useLive)
	if err != nil {
		return nil, err
	}

	var available []string
	for _, name := range base {
		if _, reserved := r.Reserved[name]; reserved {
			continue
		}
		if _, excluded := r.ExcludeExtra[name]; excluded {
			continue
		}
		available = append(available, name)
	}
	if len(available) == 0 {
		return nil, ErrNoNodes
	}
	return SortNames(available), nil
}

func (r *Resolver) basePool(ctx context.Context, defined []string, useLive bool) ([]string, error) {
	switch {
	case len(defined) == 0 && !useLive:
		return nil, ErrNoSource
	case len(defined) == 0 && useLive:
		return r.fetchLive(ctx)
	case len(defined) > 0 && !useLive:
		return defined, nil
	default: // nonempty defined, useLive
		live, err := r.fetchLive(ctx)
		if err != nil {
			return nil, err
		}
		inLive := toSet(live)
		var intersection []string
		for _, name := range defined {
			if _, ok := inLive[name]; ok {
				intersection = append(intersection, name)
			}
		}
		if len(intersection) == 0 {
			return nil, ErrEmptyIntersection
		}
		return intersection, nil
	}
}

func (r *Resolver) fetchLive(ctx context.Context) ([]string, error) {
	if r.FetchLive == nil {
		return nil, ErrNoSource
	}
	return r.FetchLive(ctx)
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}
