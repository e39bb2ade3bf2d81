package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"golang.org/x/text/encoding/charmap"

	"github.com/roach88/isissync/internal/broker"
	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/store"
	"github.com/roach88/isissync/internal/testutil"
)

// harnessNow is the fixed clock of every scenario.
var harnessNow = time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)

var runSeq atomic.Int64

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh in-memory staging store and its own ISO tree
// on the afs memory filesystem. The returned error covers harness setup
// only; engine failures are recorded in Result.RunErr and checked against
// expect_error.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	fs := afs.New()
	root := fmt.Sprintf("mem://localhost/harness/%s-%d", scenario.Name, runSeq.Add(1))
	if err := writeSource(ctx, fs, root, scenario); err != nil {
		return nil, err
	}
	defer fs.Delete(ctx, root)

	fake := seedCatalog(scenario.Catalog)
	clock := testutil.NewFixedClock(harnessNow)

	b := broker.New(st,
		broker.WithIDGenerator(testutil.NewSequentialIDs("session")),
		broker.WithClock(clock.Now))
	eng := engine.New(fake, b, isis.NewSource(fs, root, charmap.ISO8859_1),
		engine.WithThresholds(thresholds(scenario)),
		engine.WithClock(clock.Now))

	result := NewResult()
	if scenario.DryRun {
		result.Plan, result.Report, result.RunErr = eng.Plan(ctx, scenario.Collection, scenario.ISSNs)
	} else {
		result.Report, result.RunErr = eng.Run(ctx, scenario.Collection, scenario.ISSNs)
	}
	result.Calls = append(result.Calls, fake.Calls()...)
	result.catalog = fake

	switch {
	case scenario.ExpectError && result.RunErr == nil:
		result.AddError("expected the run to fail, it succeeded")
	case !scenario.ExpectError && result.RunErr != nil:
		result.AddError(fmt.Sprintf("unexpected run error: %v", result.RunErr))
	}

	for _, a := range scenario.Assertions {
		if err := Evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

func thresholds(s *Scenario) engine.Thresholds {
	t := engine.DefaultThresholds()
	for entity, limit := range s.Thresholds {
		switch entity {
		case engine.Documents:
			t.Documents = limit
		case engine.Journals:
			t.Journals = limit
		case engine.Issues:
			t.Issues = limit
		}
	}
	return t
}

// writeSource uploads the scenario databases as Latin-1 ISO files.
func writeSource(ctx context.Context, fs afs.Service, root string, s *Scenario) error {
	for _, db := range isis.Databases {
		if s.Source.missing(db) {
			continue
		}
		var buf bytes.Buffer
		w := isis.NewWriter(&buf)
		for i, rs := range s.Source.records(db) {
			if err := w.Write(rs.Record()); err != nil {
				return fmt.Errorf("source.%s[%d]: %w", db, i, err)
			}
		}
		location := url.Join(root, s.Collection, string(db)+".iso")
		if err := fs.Upload(ctx, location, file.DefaultFileOsMode, &buf); err != nil {
			return fmt.Errorf("upload %s: %w", location, err)
		}
	}
	return nil
}

func seedCatalog(c Catalog) *testutil.FakeCatalog {
	fake := testutil.NewFakeCatalog()
	seed := func(kind catalog.Kind, entries []Entry) {
		for _, e := range entries {
			fake.Seed(kind, catalog.Identifier{
				Collection:     e.Collection,
				Code:           e.Code,
				ProcessingDate: e.ProcessingDate,
			})
		}
	}
	seed(catalog.KindJournal, c.Journals)
	seed(catalog.KindIssue, c.Issues)
	seed(catalog.KindArticle, c.Articles)

	for code, kind := range c.AddFailures {
		fake.AddErrors[code] = failure("add", kind)
	}
	for code, kind := range c.DeleteFailures {
		fake.DeleteErrors[code] = failure("delete", kind)
	}
	if c.ListFailure {
		fake.ListErr = errors.New("catalog unavailable")
	}
	return fake
}

func failure(op, kind string) error {
	switch kind {
	case FailServer:
		return &catalog.ServerError{Op: op, Status: 500, Message: "injected"}
	case FailUnauthorized:
		return fmt.Errorf("catalog %s: %w", op, catalog.ErrUnauthorized)
	default:
		return fmt.Errorf("catalog %s: connection reset by peer", op)
	}
}
