package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/roach88/isissync/internal/engine"
)

// runResult is the output of an applied reconciliation.
type runResult struct {
	*engine.Report
}

// WriteText renders one line per entity type.
func (r runResult) WriteText(w io.Writer) error {
	writeHeader(w, r.Report)
	for _, ph := range r.Phases {
		fmt.Fprintf(w, "%-10s add %d/%d (failed %d)  remove %d/%d (skipped %d)",
			ph.Entity, ph.Added, ph.ToAdd, ph.AddFailed, ph.Removed, ph.ToRemove, ph.RemoveSkipped)
		if ph.RemovalBlocked {
			fmt.Fprintf(w, "  removal batch skipped: %d > %d", ph.ToRemove, ph.Threshold)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// planResult is the output of a dry run.
type planResult struct {
	Plan   *engine.Plan   `json:"plan"`
	Report *engine.Report `json:"report"`
}

// WriteText renders counts and keys per entity type.
func (p planResult) WriteText(w io.Writer) error {
	writeHeader(w, p.Report)
	for _, ep := range p.Plan.Phases {
		fmt.Fprintf(w, "%s: %d to add, %d to remove", ep.Entity, len(ep.Add), len(ep.Remove))
		if ph := p.Report.Phase(ep.Entity); ph != nil && ph.RemovalBlocked {
			fmt.Fprintf(w, " (over threshold %d, removals would be skipped)", ph.Threshold)
		}
		fmt.Fprintln(w)
		for _, key := range ep.Add {
			fmt.Fprintf(w, "  + %s\n", key)
		}
		for _, key := range ep.Remove {
			fmt.Fprintf(w, "  - %s\n", key)
		}
	}
	return nil
}

func writeHeader(w io.Writer, report *engine.Report) {
	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "collection %s%s\n", report.Collection, mode)

	if len(report.Records) == 0 {
		return
	}
	names := make([]string, 0, len(report.Records))
	for name := range report.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, report.Records[name])
	}
	fmt.Fprintf(w, "records %s\n", strings.Join(parts, " "))
}
