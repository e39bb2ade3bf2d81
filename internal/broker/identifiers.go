package broker

import (
	"context"

	"github.com/roach88/isissync/internal/normalize"
	"github.com/roach88/isissync/internal/store"
)

// Identifier is the identity of a staged record.
type Identifier = store.Identifier

// ArticlesIDs lists the staged article identifiers.
func (s *Session) ArticlesIDs(ctx context.Context) ([]Identifier, error) {
	return s.identifiers(ctx, normalize.Articles)
}

// IssuesIDs lists the staged issue identifiers.
func (s *Session) IssuesIDs(ctx context.Context) ([]Identifier, error) {
	return s.identifiers(ctx, normalize.Issues)
}

// JournalsIDs lists the staged journal identifiers.
func (s *Session) JournalsIDs(ctx context.Context) ([]Identifier, error) {
	return s.identifiers(ctx, normalize.Journals)
}

func (s *Session) identifiers(ctx context.Context, entity normalize.Entity) ([]Identifier, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.Identifiers(ctx, s.id, string(entity))
}

// Count returns how many records of entity are staged.
func (s *Session) Count(ctx context.Context, entity normalize.Entity) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.store.CountRecords(ctx, s.id, string(entity))
}
