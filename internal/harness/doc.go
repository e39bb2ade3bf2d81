// Package harness runs reconciliation scenarios against an in-memory
// catalog and compares the resulting traces with golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: first_run
//	description: "Empty catalog receives every staged record"
//	collection: scl
//	issns: ["0032-281X"]          # optional filter
//	dry_run: false
//	thresholds: { journals: 5 }   # optional, absent entities keep defaults
//	source:
//	  title:
//	    - { "400": ["0032-281X"], "100": ["Revista A"], "91": ["20230101"] }
//	  issue: [...]
//	  artigo: [...]
//	  bib4cit: [...]
//	  missing: [bib4cit]          # databases left out of the source
//	catalog:
//	  journals: [{ collection: scl, code: 0032-281X }]
//	  add_failures: { "S0032-281X2002000300002": server }
//	  delete_failures: { "9999-9999": unauthorized }
//	expect_error: false
//	assertions:
//	  - type: call_order
//	    ops: [add_article, add_journal, add_issue]
//	  - type: call_count
//	    op: delete_journal
//	    count: 0
//
// Record fields are written in ISIS field notation, primary value first and
// subfields introduced by '^' ("Title^len").
//
// # Assertion Types
//
//   - call_order: ops appear in the catalog call log in the given order
//   - call_count: op was called exactly count times
//   - catalog_contains: the catalog holds kind/code (and processing_date when given)
//   - catalog_count: the catalog holds exactly count entries of kind
//   - outcome: the report records status for entity/key
//   - removal_blocked: the removal batch of entity was skipped by its threshold
//
// # Deterministic Testing
//
// Every scenario runs with a fixed clock, sequential session ids, a fresh
// in-memory staging store and its own in-memory ISO tree, so traces are
// identical across runs.
//
// Golden traces live in testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
