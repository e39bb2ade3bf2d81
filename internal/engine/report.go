package engine

// Status is the outcome of one planned item.
type Status string

const (
	StatusAdded        Status = "added"
	StatusRemoved      Status = "removed"
	StatusLoadFailed   Status = "load_failed"
	StatusSubmitFailed Status = "submit_failed"
	StatusUnauthorized Status = "unauthorized"
)

// Outcome is the result of processing one identifier key.
type Outcome struct {
	Key    string `json:"key" yaml:"key"`
	Status Status `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PhaseReport aggregates the outcomes of one entity type.
type PhaseReport struct {
	Entity Entity `json:"entity" yaml:"entity"`

	ToAdd     int `json:"to_add" yaml:"to_add"`
	Added     int `json:"added" yaml:"added"`
	AddFailed int `json:"add_failed" yaml:"add_failed"`

	ToRemove       int  `json:"to_remove" yaml:"to_remove"`
	Removed        int  `json:"removed" yaml:"removed"`
	RemoveSkipped  int  `json:"remove_skipped" yaml:"remove_skipped"`
	RemovalBlocked bool `json:"removal_blocked" yaml:"removal_blocked"`
	Threshold      int  `json:"threshold" yaml:"threshold"`

	Outcomes []Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

func (r *PhaseReport) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusAdded:
		r.Added++
	case StatusRemoved:
		r.Removed++
	case StatusLoadFailed, StatusSubmitFailed:
		r.AddFailed++
	case StatusUnauthorized:
		r.RemoveSkipped++
	}
}

// Report summarizes a run.
type Report struct {
	Collection string         `json:"collection" yaml:"collection"`
	DryRun     bool           `json:"dry_run" yaml:"dry_run"`
	Records    map[string]int `json:"records,omitempty" yaml:"records,omitempty"`
	Phases     []*PhaseReport `json:"phases" yaml:"phases"`
}

// Phase returns the report of entity, or nil.
func (r *Report) Phase(entity Entity) *PhaseReport {
	for _, ph := range r.Phases {
		if ph.Entity == entity {
			return ph
		}
	}
	return nil
}

// planReport describes a plan without executing it.
func planReport(plan *Plan, thresholds Thresholds) *Report {
	report := &Report{Collection: plan.Collection, DryRun: true}
	for _, ph := range plan.Phases {
		report.Phases = append(report.Phases, &PhaseReport{
			Entity:         ph.Entity,
			ToAdd:          len(ph.Add),
			ToRemove:       len(ph.Remove),
			RemovalBlocked: thresholds.Check(ph.Entity, len(ph.Remove)) != nil,
			Threshold:      thresholds.Limit(ph.Entity),
		})
	}
	return report
}
