package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Record is a staged record row.
type Record struct {
	SessionID      string
	Entity         string
	Collection     string
	Code           string
	ProcessingDate string
	Journal        string
	Issue          string
	Document       string
	// Hash is the content hash of Payload.
	Hash    string
	Payload []byte
}

// Identifier is the (collection, code, processing_date) projection of a
// staged record.
type Identifier struct {
	Collection     string
	Code           string
	ProcessingDate string
}

// CreateSession registers a broker session. Creating an existing session
// fails.
func (s *Store) CreateSession(ctx context.Context, id, collection string, createdAt time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO sessions (id, collection, created_at) VALUES (?, ?, ?)`,
		id, collection, createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

// DeleteSession removes a session and every record it staged.
// Deleting an unknown session is a no-op.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM records WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("delete session records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}

// SessionExists reports whether a session row is present.
func (s *Store) SessionExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return n > 0, nil
}

// PutRecord stages a record. A record with the same (session, entity, code)
// is replaced, so the last occurrence in an ISIS database wins.
func (s *Store) PutRecord(ctx context.Context, r Record) error {
	_, err := s.exec(ctx, `
		INSERT INTO records (
			session_id, entity, collection, code, processing_date,
			journal, issue, document, hash, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, entity, code) DO UPDATE SET
			collection = excluded.collection,
			processing_date = excluded.processing_date,
			journal = excluded.journal,
			issue = excluded.issue,
			document = excluded.document,
			hash = excluded.hash,
			payload = excluded.payload`,
		r.SessionID, r.Entity, r.Collection, r.Code, r.ProcessingDate,
		r.Journal, r.Issue, r.Document, r.Hash, string(r.Payload))
	if err != nil {
		return fmt.Errorf("put %s record %s: %w", r.Entity, r.Code, err)
	}
	return nil
}

// Identifiers lists the identifiers staged for an entity, ordered by code.
func (s *Store) Identifiers(ctx context.Context, sessionID, entity string) ([]Identifier, error) {
	rows, err := s.query(ctx, `
		SELECT collection, code, processing_date
		FROM records
		WHERE session_id = ? AND entity = ?`,
		sessionID, entity)
	if err != nil {
		return nil, fmt.Errorf("list %s identifiers: %w", entity, err)
	}
	defer rows.Close()

	var ids []Identifier
	for rows.Next() {
		var id Identifier
		if err := rows.Scan(&id.Collection, &id.Code, &id.ProcessingDate); err != nil {
			return nil, fmt.Errorf("scan %s identifier: %w", entity, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s identifiers: %w", entity, err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Code < ids[j].Code })
	return ids, nil
}

// GetRecord returns a staged record, or nil when none matches.
func (s *Store) GetRecord(ctx context.Context, sessionID, entity, code string) (*Record, error) {
	row := s.queryRow(ctx, `
		SELECT session_id, entity, collection, code, processing_date,
		       journal, issue, document, hash, payload
		FROM records
		WHERE session_id = ? AND entity = ? AND code = ?`,
		sessionID, entity, code)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s record %s: %w", entity, code, err)
	}
	return r, nil
}

// RecordsByDocument returns the records of an entity owned by a document,
// ordered by code.
func (s *Store) RecordsByDocument(ctx context.Context, sessionID, entity, document string) ([]Record, error) {
	rows, err := s.query(ctx, `
		SELECT session_id, entity, collection, code, processing_date,
		       journal, issue, document, hash, payload
		FROM records
		WHERE session_id = ? AND entity = ? AND document = ?`,
		sessionID, entity, document)
	if err != nil {
		return nil, fmt.Errorf("list %s records of %s: %w", entity, document, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", entity, err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", entity, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// CountRecords counts the records staged for an entity.
func (s *Store) CountRecords(ctx context.Context, sessionID, entity string) (int, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE session_id = ? AND entity = ?`,
		sessionID, entity).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s records: %w", entity, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		r       Record
		payload string
	)
	err := sc.Scan(
		&r.SessionID, &r.Entity, &r.Collection, &r.Code, &r.ProcessingDate,
		&r.Journal, &r.Issue, &r.Document, &r.Hash, &payload,
	)
	if err != nil {
		return nil, err
	}
	r.Payload = []byte(payload)
	return &r, nil
}
