package engine

import (
	"log/slog"
)

// EntityPlan is the reconciliation plan of one entity type.
type EntityPlan struct {
	Entity Entity   `json:"entity" yaml:"entity"`
	Add    []string `json:"add" yaml:"add"`
	Remove []string `json:"remove" yaml:"remove"`
}

// Plan is the full reconciliation plan of a run. It is computed once and
// not modified by the executor.
type Plan struct {
	Collection string        `json:"collection" yaml:"collection"`
	Phases     []*EntityPlan `json:"phases" yaml:"phases"`
}

// Diff computes the keys to add (local only) and to remove (remote only).
// Both lists are sorted.
func Diff(local, remote KeySet) (toAdd, toRemove []string) {
	return local.Minus(remote), remote.Minus(local)
}

// BuildPlan diffs local and remote key sets for every entity, in execution
// order.
func BuildPlan(collection string, local, remote KeySets) *Plan {
	plan := &Plan{Collection: collection}
	for _, entity := range Entities {
		toAdd, toRemove := Diff(local[entity], remote[entity])

		plan.Phases = append(plan.Phases, &EntityPlan{
			Entity: entity,
			Add:    toAdd,
			Remove: toRemove,
		})

		slog.Info("additions planned", "collection", collection, "entity", entity, "count", len(toAdd))
		slog.Info("removals planned", "collection", collection, "entity", entity, "count", len(toRemove))
	}
	return plan
}

// Phase returns the plan of entity, or nil.
func (p *Plan) Phase(entity Entity) *EntityPlan {
	for _, ph := range p.Phases {
		if ph.Entity == entity {
			return ph
		}
	}
	return nil
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool {
	for _, ph := range p.Phases {
		if len(ph.Add) > 0 || len(ph.Remove) > 0 {
			return false
		}
	}
	return true
}

