// Package broker stages normalized ISIS records for one reconciliation run
// and serves them back as catalog payloads.
//
// A Session is acquired with Broker.Open (or scoped with WithSession) and
// must be closed exactly once; closing deletes everything it staged.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/isissync/internal/ir"
	"github.com/roach88/isissync/internal/normalize"
	"github.com/roach88/isissync/internal/store"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("broker session closed")

// Broker opens staging sessions on a store.
type Broker struct {
	store *store.Store
	ids   IDGenerator
	clock func() time.Time
}

// Option configures a Broker.
type Option func(*Broker)

// WithIDGenerator sets the session id generator (default UUIDv7).
func WithIDGenerator(ids IDGenerator) Option {
	return func(b *Broker) {
		b.ids = ids
	}
}

// WithClock sets the clock used to stamp session creation.
func WithClock(clock func() time.Time) Option {
	return func(b *Broker) {
		b.clock = clock
	}
}

// New creates a Broker on st.
func New(st *store.Store, opts ...Option) *Broker {
	b := &Broker{
		store: st,
		ids:   UUIDv7Generator{},
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open acquires a new session for a collection.
func (b *Broker) Open(ctx context.Context, collection string) (*Session, error) {
	id := b.ids.Generate()
	if err := b.store.CreateSession(ctx, id, collection, b.clock()); err != nil {
		return nil, fmt.Errorf("open broker session: %w", err)
	}
	slog.Debug("broker session opened", "session", id, "collection", collection)
	return &Session{id: id, collection: collection, store: b.store}, nil
}

// WithSession opens a session, runs fn and closes the session on every
// exit path. The close error is reported only when fn succeeded.
func (b *Broker) WithSession(ctx context.Context, collection string, fn func(*Session) error) (err error) {
	sess, err := b.Open(ctx, collection)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(sess)
}

// Session is a staging scope owning the records written through it.
type Session struct {
	id         string
	collection string
	store      *store.Store

	mu       sync.RWMutex
	closed   bool
	once     sync.Once
	closeErr error
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Close releases the session and deletes its staged records.
// Only the first call does any work; later calls return the same result.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		// The run context may already be cancelled; release regardless.
		s.closeErr = s.store.DeleteSession(context.Background(), s.id)
		if s.closeErr != nil {
			s.closeErr = fmt.Errorf("close broker session: %w", s.closeErr)
		}
		slog.Debug("broker session closed", "session", s.id)
	})
	return s.closeErr
}

func (s *Session) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// WriteRecord stages a normalized record under entity.
func (s *Session) WriteRecord(ctx context.Context, entity normalize.Entity, rec *normalize.Record) error {
	if err := s.check(); err != nil {
		return err
	}

	hash, payload, err := ir.RecordHash(rec.Object())
	if err != nil {
		return fmt.Errorf("encode %s record %s: %w", entity, rec.Code, err)
	}

	return s.store.PutRecord(ctx, store.Record{
		SessionID:      s.id,
		Entity:         string(entity),
		Collection:     rec.Collection,
		Code:           rec.Code,
		ProcessingDate: rec.ProcessingDate,
		Journal:        rec.Journal,
		Issue:          rec.Issue,
		Document:       rec.Document,
		Hash:           hash,
		Payload:        payload,
	})
}
