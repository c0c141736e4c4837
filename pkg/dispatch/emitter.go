package dispatch

import (
	"sort"

	"github.com/fortistack/dispatchplanner/pkg/catalog"
	"github.com/fortistack/dispatchplanner/pkg/duration"
	"github.com/fortistack/dispatchplanner/pkg/nodepool"
	"github.com/fortistack/dispatchplanner/pkg/placement"
)

// Emitter renders placements into dispatch records, consulting the
// feature catalog for attributes copied verbatim and the administrator
// set for SEND_TO.
type Emitter struct {
	Features        map[string]catalog.FeatureRecord
	Administrators  []string
	SubmitOverrides map[string]catalog.SubmitFlag
}

// Emit builds one Record per placement and sorts the result by node
// numeric suffix ascending (spec §4.9).
func (e *Emitter) Emit(placements []placement.Placement) []Record {
	admins := map[string]struct{}{}
	for _, a := range e.Administrators {
		admins[a] = struct{}{}
	}

	records := make([]Record, 0, len(placements))
	for _, p := range placements {
		feature := e.Features[p.Feature]
		records = append(records, e.render(p, feature, admins))
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := nodepool.NewNode(records[i].NodeName), nodepool.NewNode(records[j].NodeName)
		if a.HasSuffix != b.HasSuffix {
			return a.HasSuffix
		}
		if a.HasSuffix && a.NumericSuffix != b.NumericSuffix {
			return a.NumericSuffix < b.NumericSuffix
		}
		return a.Name < b.Name
	})
	return records
}

func (e *Emitter) render(p placement.Placement, feature catalog.FeatureRecord, admins map[string]struct{}) Record {
	sendTo := map[string]struct{}{}
	for addr := range catalog.EmailSet(catalog.First(feature.Email)) {
		sendTo[addr] = struct{}{}
	}
	for addr := range admins {
		sendTo[addr] = struct{}{}
	}

	groupChoice := ""
	if len(p.Groups) > 0 {
		groupChoice = p.Groups[0]
	}

	return Record{
		NodeName:                p.Node,
		FeatureName:             p.Feature,
		TestCaseFolder:          optionalFirst(feature.TestCaseFolder),
		TestConfigChoice:        optionalFirst(feature.TestConfig),
		TestGroupChoice:         groupChoice,
		TestGroups:              p.Groups,
		SumDuration:             duration.Format(p.Seconds),
		DockerComposeFileChoice: optionalFirst(feature.DockerCompose),
		SendTo:                  catalog.JoinSortedEmails(sendTo),
		ProvisionVmpc:           feature.ProvisionVmpc,
		VmpcNames:               feature.VmpcNames,
		ProvisionDocker:         feature.ProvisionDocker,
		OrioleSubmitFlag:        string(e.submitFlag(p.Feature, feature)),
	}
}

func (e *Emitter) submitFlag(name string, feature catalog.FeatureRecord) catalog.SubmitFlag {
	if override, ok := e.SubmitOverrides[name]; ok {
		return override
	}
	if feature.OrioleSubmit != "" {
		return feature.OrioleSubmit
	}
	return catalog.DefaultSubmitFlag
}

func optionalFirst(fields []string) *string {
	if len(fields) == 0 {
		return nil
	}
	return &fields[0]
}
