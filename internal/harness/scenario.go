package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/isis"
)

// Scenario defines one reconciliation run and its expected effects.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Collection  string   `yaml:"collection"`
	ISSNs       []string `yaml:"issns,omitempty"`

	// DryRun computes the plan without touching the catalog.
	DryRun bool `yaml:"dry_run,omitempty"`

	// Thresholds overrides removal thresholds per entity. Absent entities
	// keep the defaults.
	Thresholds map[engine.Entity]int `yaml:"thresholds,omitempty"`

	Source  Source  `yaml:"source"`
	Catalog Catalog `yaml:"catalog"`

	// ExpectError states that the run must fail.
	ExpectError bool `yaml:"expect_error,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// RecordSpec is an ISIS record: tag to occurrences in field notation.
type RecordSpec map[string][]string

// Record converts the field map into an ISIS record.
func (r RecordSpec) Record() isis.Record {
	rec := make(isis.Record, len(r))
	for tag, values := range r {
		for _, v := range values {
			rec[tag] = append(rec[tag], isis.ParseOccurrence(v))
		}
	}
	return rec
}

// Source holds the four databases of the scenario collection.
type Source struct {
	Title   []RecordSpec `yaml:"title,omitempty"`
	Issue   []RecordSpec `yaml:"issue,omitempty"`
	Artigo  []RecordSpec `yaml:"artigo,omitempty"`
	Bib4Cit []RecordSpec `yaml:"bib4cit,omitempty"`

	// Missing lists databases that are not written at all.
	Missing []string `yaml:"missing,omitempty"`
}

func (s Source) records(db isis.Database) []RecordSpec {
	switch db {
	case isis.Title:
		return s.Title
	case isis.Issue:
		return s.Issue
	case isis.Artigo:
		return s.Artigo
	default:
		return s.Bib4Cit
	}
}

func (s Source) missing(db isis.Database) bool {
	for _, m := range s.Missing {
		if m == string(db) {
			return true
		}
	}
	return false
}

// Entry is a pre-existing catalog entry.
type Entry struct {
	Collection     string `yaml:"collection"`
	Code           string `yaml:"code"`
	ProcessingDate string `yaml:"processing_date,omitempty"`
}

// Catalog seeds the in-memory catalog and its injected failures.
type Catalog struct {
	Journals []Entry `yaml:"journals,omitempty"`
	Issues   []Entry `yaml:"issues,omitempty"`
	Articles []Entry `yaml:"articles,omitempty"`

	// AddFailures maps a code to the failure of its add call.
	AddFailures map[string]string `yaml:"add_failures,omitempty"`
	// DeleteFailures maps a code to the failure of its delete call.
	DeleteFailures map[string]string `yaml:"delete_failures,omitempty"`
	// ListFailure fails every identifier listing.
	ListFailure bool `yaml:"list_failure,omitempty"`
}

// Failure kinds accepted by AddFailures and DeleteFailures.
const (
	FailServer       = "server"
	FailUnauthorized = "unauthorized"
	FailNetwork      = "network"
)

// Assertion validates the call log, the final catalog or the report.
type Assertion struct {
	Type string `yaml:"type"`

	Op  string   `yaml:"op,omitempty"`
	Ops []string `yaml:"ops,omitempty"`

	Kind           string `yaml:"kind,omitempty"`
	Code           string `yaml:"code,omitempty"`
	ProcessingDate string `yaml:"processing_date,omitempty"`

	Entity string `yaml:"entity,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Status string `yaml:"status,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCallOrder       = "call_order"
	AssertCallCount       = "call_count"
	AssertCatalogContains = "catalog_contains"
	AssertCatalogCount    = "catalog_count"
	AssertOutcome         = "outcome"
	AssertRemovalBlocked  = "removal_blocked"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Collection == "" {
		return fmt.Errorf("collection is required")
	}

	for entity, limit := range s.Thresholds {
		if !knownEntity(entity) {
			return fmt.Errorf("thresholds: unknown entity %q", entity)
		}
		if limit < 0 {
			return fmt.Errorf("thresholds.%s: must be non-negative", entity)
		}
	}

	for _, m := range s.Source.Missing {
		if !knownDatabase(m) {
			return fmt.Errorf("source.missing: unknown database %q", m)
		}
	}

	for code, kind := range s.Catalog.AddFailures {
		if kind != FailServer && kind != FailNetwork {
			return fmt.Errorf("catalog.add_failures[%s]: unsupported failure %q", code, kind)
		}
	}
	for code, kind := range s.Catalog.DeleteFailures {
		if kind != FailServer && kind != FailUnauthorized && kind != FailNetwork {
			return fmt.Errorf("catalog.delete_failures[%s]: unsupported failure %q", code, kind)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func knownEntity(entity engine.Entity) bool {
	for _, e := range engine.Entities {
		if e == entity {
			return true
		}
	}
	return false
}

func knownDatabase(name string) bool {
	for _, db := range isis.Databases {
		if string(db) == name {
			return true
		}
	}
	return false
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCatalogContains:
		if a.Kind == "" || a.Code == "" {
			return fmt.Errorf("assertions[%d]: kind and code are required for catalog_contains", index)
		}
	case AssertCatalogCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for catalog_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for catalog_count", index)
		}
	case AssertOutcome:
		if a.Entity == "" || a.Key == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: entity, key and status are required for outcome", index)
		}
		if !knownEntity(engine.Entity(a.Entity)) {
			return fmt.Errorf("assertions[%d]: unknown entity %q", index, a.Entity)
		}
	case AssertRemovalBlocked:
		if !knownEntity(engine.Entity(a.Entity)) {
			return fmt.Errorf("assertions[%d]: unknown entity %q for removal_blocked", index, a.Entity)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
