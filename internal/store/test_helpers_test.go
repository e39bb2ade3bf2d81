package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession registers a session in s.
func createTestSession(t *testing.T, s *Store, id string) {
	t.Helper()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.CreateSession(context.Background(), id, "scl", created); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
}

// createTestRecord creates a record with minimal required fields.
func createTestRecord(sessionID, entity, code, document string) Record {
	return Record{
		SessionID:      sessionID,
		Entity:         entity,
		Collection:     "scl",
		Code:           code,
		ProcessingDate: "2023-01-15",
		Document:       document,
		Hash:           "hash-" + code,
		Payload:        []byte(`{"code":"` + code + `"}`),
	}
}
