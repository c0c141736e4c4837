package duration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig describes how to reach the historical-runtime document store.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Release    string // optional filter; empty means unfiltered
}

// document mirrors the schema documented in spec §6: feature, feature_group,
// duration_human, build, release, and one of timestamp/created_at/date.
type document struct {
	Feature        string `bson:"feature"`
	FeatureGroup   string `bson:"feature_group"`
	DurationHuman  string `bson:"duration_human"`
	Build          int    `bson:"build"`
	Release        string `bson:"release"`
	Timestamp      string `bson:"timestamp"`
	CreatedAt      string `bson:"created_at"`
	Date           string `bson:"date"`
}

func (d document) timestamp() string {
	switch {
	case d.Timestamp != "":
		return d.Timestamp
	case d.CreatedAt != "":
		return d.CreatedAt
	default:
		return d.Date
	}
}

// Store resolves feature,group -> seconds, retaining only the
// highest-build observation per key.
type Store struct {
	byKey map[string]Observation
}

type key struct {
	feature string
	group   string
}

// Empty reports whether the store holds no observations at all, which a
// caller querying a document store uses to decide whether to fall back
// to a file (spec §4.3: "on empty or error, fall back to a JSON file").
func (s *Store) Empty() bool {
	return len(s.byKey) == 0
}

// Seconds returns the seconds recorded for (feature, group), or
// DefaultGroupSeconds with ok=false if no observation exists.
func (s *Store) Seconds(feature, group string) (int, bool) {
	obs, ok := s.perGroup(feature, group)
	if !ok {
		return DefaultGroupSeconds, false
	}
	return obs.Seconds, true
}

func (s *Store) perGroup(feature, group string) (Observation, bool) {
	obs, ok := s.byKey[feature+"\x00"+group]
	return obs, ok
}

// TotalSeconds sums the selected groups' durations for a feature, defaulting
// missing entries to DefaultGroupSeconds, and returns the per-group map used
// for bin-packing.
func (s *Store) TotalSeconds(feature string, groups []string) (total int, perGroup map[string]int) {
	perGroup = make(map[string]int, len(groups))
	for _, g := range groups {
		secs, _ := s.Seconds(feature, g)
		perGroup[g] = secs
		total += secs
	}
	return total, perGroup
}

// LoadFromMongo queries the document store, retaining the highest-build
// observation per (feature, group). An empty or erroring result is not
// fatal here; the caller decides whether to fall back to a file.
func LoadFromMongo(ctx context.Context, logger log.Logger, cfg MongoConfig) (*Store, error) {
	clientCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(clientCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connect to duration store")
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			_ = level.Warn(logger).Log("msg", "failed to disconnect from duration store", "err", err)
		}
	}()

	filter := bson.M{"duration_human": bson.M{"$exists": true, "$ne": ""}}
	if cfg.Release != "" {
		filter["release"] = cfg.Release
	}

	queryCtx, cancelQuery := context.WithTimeout(ctx, 30*time.Second)
	defer cancelQuery()

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	cur, err := coll.Find(queryCtx, filter, options.Find().SetSort(bson.D{{Key: "build", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "query duration store")
	}
	defer cur.Close(queryCtx)

	var docs []document
	if err := cur.All(queryCtx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode duration store results")
	}

	return newStoreFromDocuments(docs), nil
}

func newStoreFromDocuments(docs []document) *Store {
	s := &Store{byKey: make(map[string]Observation)}
	for _, d := range docs {
		if d.Feature == "" || d.FeatureGroup == "" {
			continue
		}
		k := d.Feature + "\x00" + d.FeatureGroup
		existing, ok := s.byKey[k]
		if ok && existing.Build >= d.Build {
			continue
		}
		s.byKey[k] = Observation{
			Feature:   d.Feature,
			Group:     d.FeatureGroup,
			Seconds:   Parse(d.DurationHuman),
			Release:   d.Release,
			Build:     d.Build,
			Timestamp: d.timestamp(),
		}
	}
	return s
}

// LoadFromFile reads the JSON fallback format: either a top-level
// {feature: {group: "duration"}} dict, or a list of {feature, durations}
// / single-key {feature: {...}} entries.
func LoadFromFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read duration fallback file")
	}
	return ParseFile(raw)
}

// ParseFile parses the JSON fallback format from raw bytes.
func ParseFile(raw []byte) (*Store, error) {
	s := &Store{byKey: make(map[string]Observation)}

	var asDict map[string]map[string]string
	if err := json.Unmarshal(raw, &asDict); err == nil && asDict != nil {
		for feature, groups := range asDict {
			for group, human := range groups {
				s.byKey[feature+"\x00"+group] = Observation{
					Feature: feature,
					Group:   group,
					Seconds: Parse(human),
				}
			}
		}
		return s, nil
	}

	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, errors.Wrap(err, "duration fallback file is neither a dict nor a list")
	}
	for _, item := range asList {
		feature, groups, err := decodeListEntry(item)
		if err != nil {
			return nil, err
		}
		for group, human := range groups {
			s.byKey[feature+"\x00"+group] = Observation{
				Feature: feature,
				Group:   group,
				Seconds: Parse(human),
			}
		}
	}
	return s, nil
}

func decodeListEntry(item json.RawMessage) (string, map[string]string, error) {
	var explicit struct {
		Feature     string            `json:"feature"`
		FeatureName string            `json:"FEATURE_NAME"`
		Durations   map[string]string `json:"durations"`
	}
	if err := json.Unmarshal(item, &explicit); err == nil && explicit.Durations != nil {
		feature := explicit.Feature
		if feature == "" {
			feature = explicit.FeatureName
		}
		return feature, explicit.Durations, nil
	}

	var singleKey map[string]map[string]string
	if err := json.Unmarshal(item, &singleKey); err != nil {
		return "", nil, errors.Wrap(err, "decode duration fallback list entry")
	}
	if len(singleKey) != 1 {
		return "", nil, fmt.Errorf("duration fallback list entry must have exactly one key, got %d", len(singleKey))
	}
	for feature, groups := range singleKey {
		return feature, groups, nil
	}
	return "", nil, fmt.Errorf("unreachable")
}
