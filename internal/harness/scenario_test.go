package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/isis"
)

func TestParseScenario_Full(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: full
description: "every section"
collection: scl
issns: ["0032-281X"]
dry_run: true
thresholds: { journals: 1 }
source:
  title:
    - { "400": ["0032-281X"], "100": ["Revista^len"] }
  missing: [bib4cit]
catalog:
  articles:
    - { collection: scl, code: "S0032-281X2002000300001", processing_date: "2020-01-01" }
  add_failures: { "X": server }
  delete_failures: { "Y": unauthorized }
  list_failure: true
expect_error: true
assertions:
  - type: removal_blocked
    entity: journals
`))
	require.NoError(t, err)

	assert.Equal(t, "full", scenario.Name)
	assert.Equal(t, []string{"0032-281X"}, scenario.ISSNs)
	assert.True(t, scenario.DryRun)
	assert.Equal(t, map[engine.Entity]int{engine.Journals: 1}, scenario.Thresholds)
	assert.True(t, scenario.Source.missing(isis.Bib4Cit))
	assert.False(t, scenario.Source.missing(isis.Title))
	assert.Equal(t, "2020-01-01", scenario.Catalog.Articles[0].ProcessingDate)
	assert.True(t, scenario.Catalog.ListFailure)
	assert.True(t, scenario.ExpectError)

	rec := scenario.Source.Title[0].Record()
	assert.Equal(t, "0032-281X", rec.Primary("400"))
	assert.Equal(t, "en", rec["100"][0]["l"])
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "name: x\ncollection: scl\ncolection: scl\n", "colection"},
		{"missing name", "collection: scl\n", "name is required"},
		{"missing collection", "name: x\n", "collection is required"},
		{"unknown database", "name: x\ncollection: scl\nsource: { missing: [journal] }\n", "unknown database"},
		{"unknown threshold entity", "name: x\ncollection: scl\nthresholds: { articles: 1 }\n", "unknown entity"},
		{"negative threshold", "name: x\ncollection: scl\nthresholds: { issues: -1 }\n", "non-negative"},
		{"bad add failure", "name: x\ncollection: scl\ncatalog: { add_failures: { A: unauthorized } }\n", "unsupported failure"},
		{"bad delete failure", "name: x\ncollection: scl\ncatalog: { delete_failures: { A: boom } }\n", "unsupported failure"},
		{"unknown assertion", "name: x\ncollection: scl\nassertions: [{ type: nope }]\n", "unknown assertion type"},
		{"call_order without ops", "name: x\ncollection: scl\nassertions: [{ type: call_order }]\n", "ops list is required"},
		{"call_count without op", "name: x\ncollection: scl\nassertions: [{ type: call_count }]\n", "op is required"},
		{"catalog_contains without code", "name: x\ncollection: scl\nassertions: [{ type: catalog_contains, kind: journal }]\n", "kind and code are required"},
		{"outcome without status", "name: x\ncollection: scl\nassertions: [{ type: outcome, entity: journals, key: k }]\n", "are required for outcome"},
		{"removal_blocked bad entity", "name: x\ncollection: scl\nassertions: [{ type: removal_blocked, entity: articles }]\n", "unknown entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
