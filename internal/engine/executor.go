package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/ir"
)

// MetadataLoader fetches catalog payloads for planned additions.
// A nil object with a nil error means the identifier is unknown.
//
// Implemented by *broker.Session.
type MetadataLoader interface {
	LoadDocument(ctx context.Context, collection, code string) (ir.Object, error)
	LoadIssue(ctx context.Context, collection, code string) (ir.Object, error)
	LoadJournal(ctx context.Context, collection, code string) (ir.Object, error)
}

// entityOps binds an entity type to its loader and catalog calls.
type entityOps struct {
	load   func(ctx context.Context, collection, code string) (ir.Object, error)
	add    func(ctx context.Context, payload []byte) error
	remove func(ctx context.Context, code, collection string) error
}

// Executor applies a Plan to the catalog.
//
// Entity types run documents, journals, issues; within each, additions run
// before removals. Per-item failures are recorded as outcomes and never stop
// the batch, except for the error classes the catalog contract leaves
// unhandled: non-server errors on add, and non-authorization errors on
// delete, which abort the run.
type Executor struct {
	client     catalog.Client
	loader     MetadataLoader
	thresholds Thresholds
}

// NewExecutor creates an Executor.
func NewExecutor(client catalog.Client, loader MetadataLoader, thresholds Thresholds) *Executor {
	return &Executor{client: client, loader: loader, thresholds: thresholds}
}

func (x *Executor) ops(entity Entity) entityOps {
	switch entity {
	case Documents:
		return entityOps{x.loader.LoadDocument, x.client.AddDocument, x.client.DeleteDocument}
	case Journals:
		return entityOps{x.loader.LoadJournal, x.client.AddJournal, x.client.DeleteJournal}
	default:
		return entityOps{x.loader.LoadIssue, x.client.AddIssue, x.client.DeleteIssue}
	}
}

// Execute runs every phase of plan. The returned report is populated up to
// the point of failure when an error is returned.
func (x *Executor) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{Collection: plan.Collection}

	for _, entity := range Entities {
		ep := plan.Phase(entity)
		if ep == nil {
			continue
		}
		pr := &PhaseReport{
			Entity:    entity,
			ToAdd:     len(ep.Add),
			ToRemove:  len(ep.Remove),
			Threshold: x.thresholds.Limit(entity),
		}
		report.Phases = append(report.Phases, pr)

		ops := x.ops(entity)
		if err := x.addAll(ctx, ep, ops, pr); err != nil {
			return report, err
		}
		if err := x.removeAll(ctx, ep, ops, pr); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (x *Executor) addAll(ctx context.Context, ep *EntityPlan, ops entityOps, pr *PhaseReport) error {
	slog.Info("additions starting", "entity", ep.Entity, "count", len(ep.Add))

	for i, key := range ep.Add {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := x.addOne(ctx, ep.Entity, key, ops)
		if err != nil {
			return err
		}
		pr.record(outcome)

		if outcome.Status == StatusAdded {
			slog.Debug("item added", "entity", ep.Entity, "key", key, "index", i+1, "count", len(ep.Add))
		} else {
			slog.Error("failed to add item", "entity", ep.Entity, "key", key, "status", outcome.Status, "error", outcome.Reason)
		}
	}
	return nil
}

// addOne loads and submits a single item. Only unrecoverable submit errors
// are returned; every other failure becomes the outcome.
func (x *Executor) addOne(ctx context.Context, entity Entity, key string, ops entityOps) (Outcome, error) {
	collection, code, err := SplitKey(key)
	if err != nil {
		return Outcome{Key: key, Status: StatusLoadFailed, Reason: err.Error()}, nil
	}

	payload, err := ops.load(ctx, collection, code)
	if err != nil {
		return Outcome{Key: key, Status: StatusLoadFailed, Reason: err.Error()}, nil
	}
	if len(payload) == 0 {
		return Outcome{Key: key, Status: StatusLoadFailed, Reason: "no metadata"}, nil
	}

	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return Outcome{Key: key, Status: StatusLoadFailed, Reason: err.Error()}, nil
	}
	slog.Debug("submitting item", "entity", entity, "key", key,
		"bytes", len(data), "payload_hash", ir.PayloadHash(data))

	if err := ops.add(ctx, data); err != nil {
		if catalog.IsServerError(err) {
			return Outcome{Key: key, Status: StatusSubmitFailed, Reason: err.Error()}, nil
		}
		return Outcome{}, fmt.Errorf("add %s %s: %w", entity, key, err)
	}
	return Outcome{Key: key, Status: StatusAdded}, nil
}

func (x *Executor) removeAll(ctx context.Context, ep *EntityPlan, ops entityOps, pr *PhaseReport) error {
	slog.Info("removals starting", "entity", ep.Entity, "count", len(ep.Remove))

	if err := x.thresholds.Check(ep.Entity, len(ep.Remove)); err != nil {
		pr.RemovalBlocked = true
		slog.Info("too many items to remove, removal batch skipped",
			"entity", ep.Entity,
			"count", len(ep.Remove),
			"threshold", x.thresholds.Limit(ep.Entity))
		return nil
	}

	for _, key := range ep.Remove {
		if err := ctx.Err(); err != nil {
			return err
		}

		collection, code, err := SplitKey(key)
		if err != nil {
			return fmt.Errorf("remove %s: %w", ep.Entity, err)
		}

		if err := ops.remove(ctx, code, collection); err != nil {
			if catalog.IsUnauthorized(err) {
				pr.record(Outcome{Key: key, Status: StatusUnauthorized, Reason: err.Error()})
				slog.Warn("unauthorized access to remove items, check the catalog admin token",
					"entity", ep.Entity, "key", key)
				continue
			}
			return fmt.Errorf("remove %s %s: %w", ep.Entity, key, err)
		}
		pr.record(Outcome{Key: key, Status: StatusRemoved})
		slog.Debug("item removed", "entity", ep.Entity, "key", key)
	}
	return nil
}
