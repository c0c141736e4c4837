package nodepool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultBusyJobPrefixes is the configurable default set of job-name
// prefixes that mark a node busy, resolving spec.md §9's first open
// question in favor of configurability (SPEC_FULL.md §4.4).
var DefaultBusyJobPrefixes = []string{
	"fortistack_runtest",
	"fortistack_provision_fgts",
	"fortistackRunTests",
	"fortistackProvisionTestEnv",
}

// LiveConfig describes how to reach the Jenkins-shaped computer inventory
// endpoint.
type LiveConfig struct {
	URL             string
	Username        string
	Token           string
	BusyJobPrefixes []string
}

type computerResponse struct {
	Computer []computer `json:"computer"`
}

type computer struct {
	DisplayName string     `json:"displayName"`
	Offline     bool       `json:"offline"`
	Executors   []executor `json:"executors"`
}

type executor struct {
	CurrentExecutable *currentExecutable `json:"currentExecutable"`
}

type currentExecutable struct {
	FullDisplayName string `json:"fullDisplayName"`
}

// FetchIdle queries a Jenkins /computer/api/json endpoint and returns the
// names of online, non-master nodes with no busy executor running a
// blocked job, grounded on
// original_source/feature-configs/fortistack/load_balancer_v93.py's
// get_idle_jenkins_nodes.
func FetchIdle(ctx context.Context, cfg LiveConfig) ([]string, error) {
	base := strings.TrimRight(cfg.URL, "/")
	endpoint := base + "/computer/api/json?tree=computer[displayName,offline,executors[currentExecutable[fullDisplayName]]]"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Username != "" || cfg.Token != "" {
		req.SetBasicAuth(cfg.Username, cfg.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nodepool: query jenkins computer api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nodepool: jenkins computer api returned status %d", resp.StatusCode)
	}

	var decoded computerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("nodepool: decode jenkins computer api response: %w", err)
	}

	prefixes := cfg.BusyJobPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultBusyJobPrefixes
	}

	var idle []string
	for _, c := range decoded.Computer {
		if c.DisplayName == "" || c.DisplayName == "master" || c.Offline {
			continue
		}
		if isBusy(c, prefixes) {
			continue
		}
		idle = append(idle, c.DisplayName)
	}
	return idle, nil
}

func isBusy(c computer, prefixes []string) bool {
	for _, ex := range c.Executors {
		if ex.CurrentExecutable == nil {
			continue
		}
		job := ex.CurrentExecutable.FullDisplayName
		for _, prefix := range prefixes {
			if strings.HasPrefix(job, prefix) {
				return true
			}
		}
	}
	return false
}
