// Package catalog loads and normalizes the feature catalog: raw records
// from a file or HTTP source, merged into canonical FeatureRecords.
package catalog

import (
	"sort"
	"strings"
)

// SubmitFlag is the oriole submit strategy for a feature.
type SubmitFlag string

const (
	SubmitAll       SubmitFlag = "all"
	SubmitSucceeded SubmitFlag = "succeeded"
	SubmitNone      SubmitFlag = "none"
)

// DefaultSubmitFlag is used when a feature specifies none.
const DefaultSubmitFlag = SubmitAll

// FeatureRecord is the canonical, post-merge representation of one
// feature's test configuration.
type FeatureRecord struct {
	Name string

	TestCaseFolder []string
	TestConfig     []string
	TestGroups     []string
	DockerCompose  []string

	// Email is the merged, comma-joined, lexicographically sorted address
	// list, held as a single-element slice to mirror the upstream schema.
	Email []string

	ProvisionVmpc   bool
	ProvisionDocker bool
	VmpcNames       string
	OrioleSubmit    SubmitFlag
}

// First returns the first element of fields, or "" if empty.
func First(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// EmailSet splits a comma-joined address string into a deduped set.
func EmailSet(joined string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, addr := range strings.Split(joined, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out[addr] = struct{}{}
		}
	}
	return out
}

// JoinSortedEmails renders a set of addresses as a sorted, comma-joined
// string.
func JoinSortedEmails(set map[string]struct{}) string {
	addrs := make([]string, 0, len(set))
	for a := range set {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return strings.Join(addrs, ",")
}
