package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
)

func TestLoadFileListShapeWithNameField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	body := `[{"feature_name":"F1","test_groups":["g1"]},{"name":"F2"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}

	recs, warnings, err := Load(context.Background(), log.NewNopLogger(), Source{Path: path})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	n0, _ := Normalize(recs[0])
	n1, _ := Normalize(recs[1])
	if n0.Name != "F1" || n1.Name != "F2" {
		t.Errorf("names = %q, %q", n0.Name, n1.Name)
	}
}

func TestLoadFileListOfSingleKeyMaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	body := `[{"F1":{"test_groups":["g1"]}},{"F2":{}}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}

	recs, _, err := Load(context.Background(), log.NewNopLogger(), Source{Path: path})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
}

func TestLoadFileTopLevelMapShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	body := `{"F1":{"test_groups":["g1"]},"F2":{"test_groups":["g2"]}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}

	recs, _, err := Load(context.Background(), log.NewNopLogger(), Source{Path: path})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
}

func TestLoadDropsRecordsWithNoResolvableName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	body := `[{"feature_name":"F1"},{"test_groups":["orphan"]}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}

	recs, warnings, err := Load(context.Background(), log.NewNopLogger(), Source{Path: path})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", warnings)
	}
}

func TestLoadMissingFileIsSourceUnavailable(t *testing.T) {
	_, _, err := Load(context.Background(), log.NewNopLogger(), Source{Path: "/no/such/file.json"})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestFetchHTTPBearerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"feature_name":"F1"}]`))
	}))
	defer srv.Close()

	recs, _, err := Load(context.Background(), log.NewNopLogger(), Source{URL: srv.URL, BearerToken: "tok123"})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
}

func TestFetchHTTPFallsBackToBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token", "/auth/login":
			w.WriteHeader(http.StatusNotFound)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "u" || pass != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"feature_name":"F1"}]`))
	}))
	defer srv.Close()

	recs, _, err := Load(context.Background(), log.NewNopLogger(), Source{URL: srv.URL, Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
}

func TestFetchHTTPUnauthorizedEverywhereReturnsErrUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, _, err := Load(context.Background(), log.NewNopLogger(), Source{URL: srv.URL, Username: "u", Password: "p"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
