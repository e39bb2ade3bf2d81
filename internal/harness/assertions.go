package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/testutil"
)

// AssertionError is returned when an assertion fails. It carries the call
// log for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Calls    []testutil.CatalogCall
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nCatalog calls:\n")
	for i, c := range e.Calls {
		fmt.Fprintf(&buf, "  [%d] %s %s/%s\n", i+1, c.Op, c.Collection, c.Code)
	}
	return buf.String()
}

// Evaluate checks one assertion against a result.
func Evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCallOrder:
		return assertCallOrder(result, a)
	case AssertCallCount:
		return assertCallCount(result, a)
	case AssertCatalogContains:
		return assertCatalogContains(result, a)
	case AssertCatalogCount:
		return assertCatalogCount(result, a)
	case AssertOutcome:
		return assertOutcome(result, a)
	case AssertRemovalBlocked:
		return assertRemovalBlocked(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCallOrder checks that the first call of each op appears in the
// given order. Other calls may be interleaved.
func assertCallOrder(result *Result, a Assertion) error {
	positions := make(map[string]int)
	for i, c := range result.Calls {
		if _, seen := positions[c.Op]; !seen {
			positions[c.Op] = i + 1
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all ops present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Calls:    result.Calls,
			}
		}
	}

	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Calls: result.Calls,
			}
		}
	}
	return nil
}

func assertCallCount(result *Result, a Assertion) error {
	count := 0
	for _, c := range result.Calls {
		if c.Op == a.Op && (a.Code == "" || c.Code == a.Code) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%s called %d time(s)", a.Op, a.Count),
			Actual:   fmt.Sprintf("called %d time(s)", count),
			Calls:    result.Calls,
		}
	}
	return nil
}

func assertCatalogContains(result *Result, a Assertion) error {
	for _, id := range result.Entries(catalog.Kind(a.Kind)) {
		if id.Code != a.Code {
			continue
		}
		if a.ProcessingDate != "" && id.ProcessingDate != a.ProcessingDate {
			return &AssertionError{
				Type:     AssertCatalogContains,
				Expected: fmt.Sprintf("%s %s processed %s", a.Kind, a.Code, a.ProcessingDate),
				Actual:   fmt.Sprintf("processed %s", id.ProcessingDate),
				Calls:    result.Calls,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertCatalogContains,
		Expected: fmt.Sprintf("%s %s in catalog", a.Kind, a.Code),
		Actual:   "not found",
		Calls:    result.Calls,
	}
}

func assertCatalogCount(result *Result, a Assertion) error {
	n := len(result.Entries(catalog.Kind(a.Kind)))
	if n != a.Count {
		return &AssertionError{
			Type:     AssertCatalogCount,
			Expected: fmt.Sprintf("%d %s entries", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d entries", n),
			Calls:    result.Calls,
		}
	}
	return nil
}

func assertOutcome(result *Result, a Assertion) error {
	ph := phase(result, a.Entity)
	if ph != nil {
		for _, o := range ph.Outcomes {
			if o.Key == a.Key {
				if string(o.Status) == a.Status {
					return nil
				}
				return &AssertionError{
					Type:     AssertOutcome,
					Expected: fmt.Sprintf("%s %s", a.Key, a.Status),
					Actual:   fmt.Sprintf("%s %s (%s)", a.Key, o.Status, o.Reason),
					Calls:    result.Calls,
				}
			}
		}
	}
	return &AssertionError{
		Type:     AssertOutcome,
		Expected: fmt.Sprintf("%s %s", a.Key, a.Status),
		Actual:   "no outcome recorded",
		Calls:    result.Calls,
	}
}

func assertRemovalBlocked(result *Result, a Assertion) error {
	ph := phase(result, a.Entity)
	if ph == nil || !ph.RemovalBlocked {
		return &AssertionError{
			Type:     AssertRemovalBlocked,
			Expected: fmt.Sprintf("%s removal batch skipped", a.Entity),
			Actual:   "removal batch ran",
			Calls:    result.Calls,
		}
	}
	return nil
}

func phase(result *Result, entity string) *engine.PhaseReport {
	if result.Report == nil {
		return nil
	}
	return result.Report.Phase(engine.Entity(entity))
}
