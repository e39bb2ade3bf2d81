package harness

import (
	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the run matched expect_error and every assertion
	// held.
	Pass bool `json:"pass"`

	// Calls is the catalog mutation log in call order.
	Calls []testutil.CatalogCall `json:"calls"`

	// Report is the run report. Nil when the run failed before planning.
	Report *engine.Report `json:"report,omitempty"`

	// Plan is set for dry runs.
	Plan *engine.Plan `json:"plan,omitempty"`

	// RunErr is the error returned by the engine, if any.
	RunErr error `json:"-"`

	Errors []string `json:"errors,omitempty"`

	catalog *testutil.FakeCatalog
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Calls:  []testutil.CatalogCall{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Entries returns the final catalog entries of kind.
func (r *Result) Entries(kind catalog.Kind) []catalog.Identifier {
	if r.catalog == nil {
		return nil
	}
	return r.catalog.Entries(kind)
}
