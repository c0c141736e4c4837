package nodepool

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestResolveEmptyDefinedNoLiveFails(t *testing.T) {
	r := &Resolver{}
	_, err := r.Resolve(context.Background(), nil, false)
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v, want ErrNoSource", err)
	}
}

func TestResolveEmptyDefinedUsesLiveSet(t *testing.T) {
	r := &Resolver{
		FetchLive: func(ctx context.Context) ([]string, error) {
			return []string{"node2", "node1"}, nil
		},
	}
	got, err := r.Resolve(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	want := []string{"node1", "node2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveDefinedWithoutLive(t *testing.T) {
	r := &Resolver{}
	got, err := r.Resolve(context.Background(), []string{"node2", "node1"}, false)
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	want := []string{"node1", "node2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveDefinedIntersectLive(t *testing.T) {
	r := &Resolver{
		FetchLive: func(ctx context.Context) ([]string, error) {
			return []string{"node1", "node3"}, nil
		},
	}
	got, err := r.Resolve(context.Background(), []string{"node1", "node2"}, true)
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if !reflect.DeepEqual(got, []string{"node1"}) {
		t.Errorf("Resolve() = %v, want [node1]", got)
	}
}

func TestResolveEmptyIntersectionFails(t *testing.T) {
	r := &Resolver{
		FetchLive: func(ctx context.Context) ([]string, error) {
			return []string{"node9"}, nil
		},
	}
	_, err := r.Resolve(context.Background(), []string{"node1", "node2"}, true)
	if !errors.Is(err, ErrEmptyIntersection) {
		t.Fatalf("err = %v, want ErrEmptyIntersection", err)
	}
}

func TestResolveReservedAndExcludeExtraFiltering(t *testing.T) {
	r := &Resolver{
		Reserved:     map[string]struct{}{"node1": {}},
		ExcludeExtra: map[string]struct{}{"node3": {}},
	}
	got, err := r.Resolve(context.Background(), []string{"node1", "node2", "node3"}, false)
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if !reflect.DeepEqual(got, []string{"node2"}) {
		t.Errorf("Resolve() = %v, want [node2]", got)
	}
}

func TestResolveNoNodesAfterFiltering(t *testing.T) {
	r := &Resolver{Reserved: map[string]struct{}{"node1": {}}}
	_, err := r.Resolve(context.Background(), []string{"node1"}, false)
	if !errors.Is(err, ErrNoNodes) {
		t.Fatalf("err = %v, want ErrNoNodes", err)
	}
}
