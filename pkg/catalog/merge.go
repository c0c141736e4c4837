package catalog

// Merger combines multiple normalized occurrences of the same feature name
// into one canonical FeatureRecord (spec §4.2): list fields accumulate in
// first-seen order, email is unioned with the administrator set, and
// scalar flags are latest-wins.
type Merger struct {
	// Administrators is always unioned into a feature's email set whenever
	// that feature has any email configured at all (invariant 10).
	Administrators map[string]struct{}
}

// NewMerger constructs a Merger with the given administrator address set.
func NewMerger(administrators []string) *Merger {
	set := make(map[string]struct{}, len(administrators))
	for _, a := range administrators {
		set[a] = struct{}{}
	}
	return &Merger{Administrators: set}
}

// accumulator tracks in-progress merge state for one feature name.
type accumulator struct {
	name string

	testCaseFolder orderedSet
	testConfig     orderedSet
	testGroups     orderedSet
	dockerCompose  orderedSet
	emails         map[string]struct{}
	hasAnyEmail    bool

	provisionVmpc   bool
	provisionDocker bool
	vmpcNames       string
	orioleSubmit    SubmitFlag
}

// Merge groups normalized records by name (preserving first-seen feature
// order) and folds each group into one FeatureRecord.
func (m *Merger) Merge(records []Normalized) []FeatureRecord {
	order := make([]string, 0)
	accs := make(map[string]*accumulator)

	for _, rec := range records {
		acc, ok := accs[rec.Name]
		if !ok {
			acc = &accumulator{
				name:            rec.Name,
				emails:          map[string]struct{}{},
				provisionDocker: true, // latest-wins default matches spec §4.9 fallback
				orioleSubmit:    DefaultSubmitFlag,
			}
			accs[rec.Name] = acc
			order = append(order, rec.Name)
		}
		m.fold(acc, rec)
	}

	out := make([]FeatureRecord, 0, len(order))
	for _, name := range order {
		out = append(out, m.finalize(accs[name]))
	}
	return out
}

func (m *Merger) fold(acc *accumulator, rec Normalized) {
	acc.testCaseFolder.addAll(rec.TestCaseFolder)
	acc.testConfig.addAll(rec.TestConfig)
	acc.testGroups.addAll(rec.TestGroups)
	acc.dockerCompose.addAll(rec.DockerCompose)

	for _, joined := range rec.Email {
		for addr := range EmailSet(joined) {
			acc.emails[addr] = struct{}{}
			acc.hasAnyEmail = true
		}
	}

	if rec.HasProvisionVmpc {
		acc.provisionVmpc = rec.ProvisionVmpc
	}
	if rec.HasProvisionDocker {
		acc.provisionDocker = rec.ProvisionDocker
	}
	if rec.VmpcNames != "" {
		acc.vmpcNames = rec.VmpcNames
	}
	if rec.HasOrioleSubmit {
		acc.orioleSubmit = rec.OrioleSubmit
	}
}

func (m *Merger) finalize(acc *accumulator) FeatureRecord {
	var email []string
	if acc.hasAnyEmail {
		full := map[string]struct{}{}
		for a := range acc.emails {
			full[a] = struct{}{}
		}
		for a := range m.Administrators {
			full[a] = struct{}{}
		}
		email = []string{JoinSortedEmails(full)}
	}

	return FeatureRecord{
		Name:            acc.name,
		TestCaseFolder:  acc.testCaseFolder.values,
		TestConfig:      acc.testConfig.values,
		TestGroups:      acc.testGroups.values,
		DockerCompose:   acc.dockerCompose.values,
		Email:           email,
		ProvisionVmpc:   acc.provisionVmpc,
		ProvisionDocker: acc.provisionDocker,
		VmpcNames:       acc.vmpcNames,
		OrioleSubmit:    acc.orioleSubmit,
	}
}

// orderedSet preserves first-seen insertion order while deduplicating.
type orderedSet struct {
	values []string
	seen   map[string]struct{}
}

func (s *orderedSet) addAll(items []string) {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	for _, item := range items {
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.values = append(s.values, item)
	}
}
