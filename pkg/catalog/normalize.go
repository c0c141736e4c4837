package catalog

import "encoding/json"

// Normalized is one feature's record prior to merging: the raw record has
// been validated, list fields wrapped, and scalar flags decoded, but
// duplicates across occurrences of the same feature name have not yet been
// resolved (that is FeatureMerger's job).
type Normalized struct {
	Name string

	TestCaseFolder []string
	TestConfig     []string
	TestGroups     []string
	DockerCompose  []string
	Email          []string

	ProvisionVmpc      bool
	HasProvisionVmpc   bool
	ProvisionDocker    bool
	HasProvisionDocker bool
	VmpcNames          string
	OrioleSubmit       SubmitFlag
	HasOrioleSubmit    bool
}

// Normalize promotes a raw keyed record into canonical field names and
// shapes. The FEATURE_NAME key must already be present (Load guarantees
// this for every record it returns).
func Normalize(rec rawRecord) (Normalized, error) {
	var name string
	if raw, ok := rec["FEATURE_NAME"]; ok {
		_ = json.Unmarshal(raw, &name)
	}

	n := Normalized{
		Name:           name,
		TestCaseFolder: stringList(rec, "test_case_folder"),
		TestConfig:     stringList(rec, "test_config"),
		TestGroups:     stringList(rec, "test_groups"),
		DockerCompose:  stringList(rec, "docker_compose"),
		Email:          stringList(rec, "email"),
	}

	if v, ok := boolField(rec, "PROVISION_VMPC", "provisionVmpc"); ok {
		n.ProvisionVmpc, n.HasProvisionVmpc = v, true
	}
	if v, ok := boolField(rec, "PROVISION_DOCKER", "provisionDocker"); ok {
		n.ProvisionDocker, n.HasProvisionDocker = v, true
	}
	if v, ok := stringField(rec, "VMPC_NAMES", "vmpcNames"); ok {
		n.VmpcNames = v
	}
	if v, ok := stringField(rec, "ORIOLE_SUBMIT_FLAG", "orioleSubmitFlag"); ok && v != "" {
		n.OrioleSubmit, n.HasOrioleSubmit = SubmitFlag(v), true
	}

	return n, nil
}

// stringList reads a field that may be encoded as a JSON array of strings
// or a single string, and wraps the latter into a one-element list.
func stringList(rec rawRecord, key string) []string {
	raw, ok := rec[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}

func boolField(rec rawRecord, keys ...string) (bool, bool) {
	for _, key := range keys {
		if raw, ok := rec[key]; ok {
			var v bool
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, true
			}
		}
	}
	return false, false
}

func stringField(rec rawRecord, keys ...string) (string, bool) {
	for _, key := range keys {
		if raw, ok := rec[key]; ok {
			var v string
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, true
			}
		}
	}
	return "", false
}
