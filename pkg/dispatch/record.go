// Package dispatch renders final placements into the dispatch JSON
// payload external test runners consume (spec §4.9).
package dispatch

// Record is one node's worth of work: a feature, a group bin, and the
// feature attributes copied verbatim into the output schema.
type Record struct {
	NodeName                string   `json:"NODE_NAME"`
	FeatureName             string   `json:"FEATURE_NAME"`
	TestCaseFolder          *string  `json:"TEST_CASE_FOLDER"`
	TestConfigChoice        *string  `json:"TEST_CONFIG_CHOICE"`
	TestGroupChoice         string   `json:"TEST_GROUP_CHOICE"`
	TestGroups              []string `json:"TEST_GROUPS"`
	SumDuration             string   `json:"SUM_DURATION"`
	DockerComposeFileChoice *string  `json:"DOCKER_COMPOSE_FILE_CHOICE"`
	SendTo                  string   `json:"SEND_TO"`
	ProvisionVmpc           bool     `json:"PROVISION_VMPC"`
	VmpcNames               string   `json:"VMPC_NAMES"`
	ProvisionDocker         bool     `json:"PROVISION_DOCKER"`
	OrioleSubmitFlag        string   `json:"ORIOLE_SUBMIT_FLAG"`
}
