package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/isissync/internal/ir"
)

// Snapshot renders the observable effects of a run as canonical JSON:
// catalog calls, per-item outcomes, skipped removal batches, the plan of a
// dry run and whether the run failed.
func Snapshot(name string, result *Result) ([]byte, error) {
	calls := ir.Array{}
	for _, c := range result.Calls {
		calls = append(calls, ir.Object{
			"op":         ir.String(c.Op),
			"collection": ir.String(c.Collection),
			"code":       ir.String(c.Code),
		})
	}

	outcomes := ir.Array{}
	blocked := ir.Array{}
	if result.Report != nil {
		for _, ph := range result.Report.Phases {
			for _, o := range ph.Outcomes {
				outcomes = append(outcomes, ir.Object{
					"entity": ir.String(ph.Entity),
					"key":    ir.String(o.Key),
					"status": ir.String(o.Status),
				})
			}
			if ph.RemovalBlocked {
				blocked = append(blocked, ir.String(ph.Entity))
			}
		}
	}

	snapshot := ir.Object{
		"scenario_name": ir.String(name),
		"calls":         calls,
		"outcomes":      outcomes,
	}
	if len(blocked) > 0 {
		snapshot["blocked"] = blocked
	}
	if result.RunErr != nil {
		snapshot["failed"] = ir.Bool(true)
	}
	if result.Plan != nil {
		planned := ir.Array{}
		for _, ep := range result.Plan.Phases {
			planned = append(planned, ir.Object{
				"entity": ir.String(ep.Entity),
				"add":    stringArray(ep.Add),
				"remove": stringArray(ep.Remove),
			})
		}
		snapshot["planned"] = planned
	}
	return ir.MarshalCanonical(snapshot)
}

func stringArray(values []string) ir.Array {
	arr := make(ir.Array, len(values))
	for i, v := range values {
		arr[i] = ir.String(v)
	}
	return arr
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
