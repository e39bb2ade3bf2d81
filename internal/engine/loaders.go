package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/isissync/internal/broker"
	"github.com/roach88/isissync/internal/catalog"
)

// LocalIDs builds the local identifier keys from the records staged in a
// broker session.
func LocalIDs(ctx context.Context, sess *broker.Session) (KeySets, error) {
	sets := NewKeySets()

	articles, err := sess.ArticlesIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local documents: %w", err)
	}
	for _, id := range articles {
		sets[Documents].Add(DocumentKey(id.Collection, id.Code, id.ProcessingDate))
	}

	issues, err := sess.IssuesIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local issues: %w", err)
	}
	for _, id := range issues {
		sets[Issues].Add(IssueKey(id.Collection, id.Code, id.ProcessingDate))
	}

	journals, err := sess.JournalsIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local journals: %w", err)
	}
	for _, id := range journals {
		sets[Journals].Add(JournalKey(id.Collection, id.Code))
	}

	for _, entity := range Entities {
		slog.Info("local identifiers loaded", "entity", entity, "count", len(sets[entity]))
	}
	return sets, nil
}

// RemoteIDs lists the catalog identifiers of a collection. With ISSNs the
// catalog is queried once per ISSN; without, a single unfiltered query is
// made per entity. Any listing failure aborts.
func RemoteIDs(ctx context.Context, client catalog.Client, collection string, issns []string) (KeySets, error) {
	sets := NewKeySets()

	filters := issns
	if len(filters) == 0 {
		filters = []string{""}
	}

	for _, issn := range filters {
		docs, err := client.Documents(ctx, collection, issn)
		if err != nil {
			return nil, fmt.Errorf("load remote documents: %w", err)
		}
		for _, id := range docs {
			key := DocumentKey(id.Collection, id.Code, id.ProcessingDate)
			slog.Debug("remote document identifier", "key", key)
			sets[Documents].Add(key)
		}

		issues, err := client.Issues(ctx, collection, issn)
		if err != nil {
			return nil, fmt.Errorf("load remote issues: %w", err)
		}
		for _, id := range issues {
			key := IssueKey(id.Collection, id.Code, id.ProcessingDate)
			slog.Debug("remote issue identifier", "key", key)
			sets[Issues].Add(key)
		}

		journals, err := client.Journals(ctx, collection, issn)
		if err != nil {
			return nil, fmt.Errorf("load remote journals: %w", err)
		}
		for _, id := range journals {
			key := JournalKey(id.Collection, id.Code)
			slog.Debug("remote journal identifier", "key", key)
			sets[Journals].Add(key)
		}
	}

	for _, entity := range Entities {
		slog.Info("remote identifiers loaded", "collection", collection, "entity", entity, "count", len(sets[entity]))
	}
	return sets, nil
}
