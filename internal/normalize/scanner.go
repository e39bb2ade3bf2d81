package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/pid"
)

// VisitFunc receives each record that survives normalization and the ISSN
// filter. Returning an error stops the scan.
type VisitFunc func(entity Entity, rec *Record) error

// Stats counts what a scan did per entity.
type Stats struct {
	Read      int
	Emitted   int
	Dropped   int
	Filtered  int
	Integrity int
}

// Scanner drains the ISIS databases of one collection.
type Scanner struct {
	source     *isis.Source
	collection string
	issns      map[string]struct{}
	clock      func() time.Time
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithISSNs restricts the scan to records whose journal is one of issns.
// An empty list disables the filter.
func WithISSNs(issns []string) ScannerOption {
	return func(s *Scanner) {
		issns = pid.NormalizeISSNs(issns)
		if len(issns) == 0 {
			s.issns = nil
			return
		}
		s.issns = make(map[string]struct{}, len(issns))
		for _, issn := range issns {
			s.issns[issn] = struct{}{}
		}
	}
}

// WithClock sets the clock used for records without a processing date.
func WithClock(clock func() time.Time) ScannerOption {
	return func(s *Scanner) {
		s.clock = clock
	}
}

// NewScanner creates a Scanner for a collection.
func NewScanner(source *isis.Source, collection string, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		source:     source,
		collection: collection,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan reads title, issue, artigo and bib4cit in that order and calls visit
// for every normalized record.
//
// All four ISO files must exist before any record is read; a missing file
// fails the scan with an isis.NotFoundError and nothing is visited.
// Records without a PID are dropped silently. Records failing normalization
// are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, visit VisitFunc) (map[Entity]*Stats, error) {
	for _, db := range isis.Databases {
		exists, err := s.source.Exists(ctx, s.collection, db)
		if err != nil {
			return nil, fmt.Errorf("check %s database: %w", db, err)
		}
		if !exists {
			return nil, &isis.NotFoundError{
				Collection: s.collection,
				Database:   db,
				URL:        s.source.URL(s.collection, db),
			}
		}
	}

	stats := make(map[Entity]*Stats, len(isis.Databases))
	for _, db := range isis.Databases {
		st := &Stats{}
		stats[EntityFor(db)] = st
		if err := s.scanDatabase(ctx, db, st, visit); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Scanner) scanDatabase(ctx context.Context, db isis.Database, st *Stats, visit VisitFunc) error {
	file, err := s.source.Open(ctx, s.collection, db)
	if err != nil {
		return err
	}
	defer file.Close()

	entity := EntityFor(db)
	slog.Info("reading ISIS database", "collection", s.collection, "database", db, "url", file.URL)

	for file.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.Read++
		index := file.Count()

		rec, err := PrepareRecord(s.collection, file.Record(), s.clock())
		if err != nil {
			st.Integrity++
			ierr := &IntegrityError{Database: db, Index: index, Reason: err.Error()}
			slog.Error("failed to load record", "collection", s.collection, "error", ierr)
			continue
		}
		if rec == nil {
			st.Dropped++
			continue
		}
		if s.issns != nil {
			if _, ok := s.issns[rec.Journal]; !ok {
				st.Filtered++
				continue
			}
		}

		slog.Debug("loaded record",
			"entity", entity,
			"code", rec.Code,
			"processing_date", rec.ProcessingDate)

		if err := visit(entity, rec); err != nil {
			return err
		}
		st.Emitted++
	}
	if err := file.Err(); err != nil {
		return fmt.Errorf("read %s database: %w", db, err)
	}
	return nil
}
