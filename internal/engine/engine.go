package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/isissync/internal/broker"
	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/normalize"
	"github.com/roach88/isissync/internal/pid"
)

// Engine reconciles one collection at a time.
//
// Thread-safety model: an Engine holds no per-run state and may be shared,
// but two concurrent runs for the same collection race on the catalog.
type Engine struct {
	client     catalog.Client
	broker     *broker.Broker
	source     *isis.Source
	thresholds Thresholds
	clock      func() time.Time
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithThresholds sets the removal thresholds.
//
// Default: DefaultThresholds() (2000 documents, 5 journals, 20 issues).
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithClock sets the clock used for records without a processing date.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an Engine reading ISO files from source, staging through
// broker and reconciling against client.
func New(client catalog.Client, b *broker.Broker, source *isis.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		client:     client,
		broker:     b,
		source:     source,
		thresholds: DefaultThresholds(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run reconciles collection, optionally restricted to issns, and applies
// the plan to the catalog.
func (e *Engine) Run(ctx context.Context, collection string, issns []string) (*Report, error) {
	return e.run(ctx, collection, issns, func(ctx context.Context, plan *Plan, sess *broker.Session) (*Report, error) {
		return NewExecutor(e.client, sess, e.thresholds).Execute(ctx, plan)
	})
}

// Plan computes the reconciliation plan without mutating the catalog.
// The returned report is marked DryRun and carries no outcomes.
func (e *Engine) Plan(ctx context.Context, collection string, issns []string) (*Plan, *Report, error) {
	var plan *Plan
	report, err := e.run(ctx, collection, issns, func(ctx context.Context, p *Plan, _ *broker.Session) (*Report, error) {
		plan = p
		return planReport(p, e.thresholds), nil
	})
	return plan, report, err
}

type applyFunc func(ctx context.Context, plan *Plan, sess *broker.Session) (*Report, error)

// run loads remote identifiers, drains the ISIS databases into a broker
// session, builds the plan and hands it to apply. The session is released
// on every exit path.
func (e *Engine) run(ctx context.Context, collection string, issns []string, apply applyFunc) (*Report, error) {
	issns = pid.NormalizeISSNs(issns)
	slog.Info("reconciliation starting", "collection", collection, "issns", issns)

	remote, err := RemoteIDs(ctx, e.client, collection, issns)
	if err != nil {
		return nil, err
	}

	var report *Report
	err = e.broker.WithSession(ctx, collection, func(sess *broker.Session) error {
		scanner := normalize.NewScanner(e.source, collection,
			normalize.WithISSNs(issns),
			normalize.WithClock(e.clock))

		stats, err := scanner.Scan(ctx, func(entity normalize.Entity, rec *normalize.Record) error {
			return sess.WriteRecord(ctx, entity, rec)
		})
		if err != nil {
			return fmt.Errorf("scan collection %s: %w", collection, err)
		}

		local, err := LocalIDs(ctx, sess)
		if err != nil {
			return err
		}

		plan := BuildPlan(collection, local, remote)
		report, err = apply(ctx, plan, sess)
		if report != nil {
			report.Records = recordCounts(stats)
		}
		return err
	})
	if err != nil {
		return report, err
	}

	logSummary(report)
	slog.Info("reconciliation finished", "collection", collection)
	return report, nil
}

func recordCounts(stats map[normalize.Entity]*normalize.Stats) map[string]int {
	counts := make(map[string]int, len(stats))
	for entity, st := range stats {
		counts[string(entity)] = st.Emitted
	}
	return counts
}

func logSummary(report *Report) {
	for _, ph := range report.Phases {
		slog.Info("phase summary",
			"collection", report.Collection,
			"entity", ph.Entity,
			"to_add", ph.ToAdd,
			"added", ph.Added,
			"add_failed", ph.AddFailed,
			"to_remove", ph.ToRemove,
			"removed", ph.Removed,
			"remove_skipped", ph.RemoveSkipped,
			"removal_blocked", ph.RemovalBlocked)
	}
}
