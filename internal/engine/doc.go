// Package engine reconciles the ISIS databases of a collection against the
// remote catalog.
//
// A run has four steps:
//
//  1. RemoteIDs lists the catalog identifiers (per ISSN when filtered).
//  2. The collection is drained through normalize.Scanner into a broker
//     session, and LocalIDs reads the staged identifiers back.
//  3. BuildPlan diffs local and remote keys per entity type.
//  4. Executor applies the plan: documents, journals, issues, additions
//     before removals.
//
// Identifier keys are collection_code_YYYYMMDD for documents and issues
// and collection_code for journals; both sides build them with the same
// functions in keys.go.
//
// Additions always run and isolate per-item failures. Removals are gated by
// Thresholds: a batch larger than its threshold is skipped as a whole.
//
// Everything runs sequentially on the calling goroutine.
package engine
