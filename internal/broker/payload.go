package broker

import (
	"context"
	"fmt"

	"github.com/roach88/isissync/internal/ir"
	"github.com/roach88/isissync/internal/normalize"
	"github.com/roach88/isissync/internal/store"
)

// Payload keys.
const (
	keyTitle     = "title"
	keyIssue     = "issue"
	keyArticle   = "article"
	keyCitations = "citations"
)

// LoadJournal builds the catalog payload of a journal:
//
//	{collection, code, processing_date, title}
//
// It returns nil when the journal is not staged.
func (s *Session) LoadJournal(ctx context.Context, collection, code string) (ir.Object, error) {
	journal, err := s.load(ctx, normalize.Journals, collection, code)
	if err != nil || journal == nil {
		return nil, err
	}

	payload := envelope(journal)
	payload[keyTitle] = journal
	return payload, nil
}

// LoadIssue builds the catalog payload of an issue:
//
//	{collection, code, processing_date, issue, title}
//
// title is omitted when the owning journal is not staged. It returns nil
// when the issue is not staged.
func (s *Session) LoadIssue(ctx context.Context, collection, code string) (ir.Object, error) {
	issue, err := s.load(ctx, normalize.Issues, collection, code)
	if err != nil || issue == nil {
		return nil, err
	}

	payload := envelope(issue)
	payload[keyIssue] = issue
	if err := s.attach(ctx, payload, keyTitle, normalize.Journals, collection, issue.Str("journal")); err != nil {
		return nil, err
	}
	return payload, nil
}

// LoadDocument builds the catalog payload of an article:
//
//	{collection, code, processing_date, article, title, issue, citations}
//
// citations lists the staged references of the article ordered by code.
// title and issue are omitted when their records are not staged. It
// returns nil when the article is not staged.
func (s *Session) LoadDocument(ctx context.Context, collection, code string) (ir.Object, error) {
	article, err := s.load(ctx, normalize.Articles, collection, code)
	if err != nil || article == nil {
		return nil, err
	}

	payload := envelope(article)
	payload[keyArticle] = article
	if err := s.attach(ctx, payload, keyTitle, normalize.Journals, collection, article.Str("journal")); err != nil {
		return nil, err
	}
	if err := s.attach(ctx, payload, keyIssue, normalize.Issues, collection, article.Str("issue")); err != nil {
		return nil, err
	}

	refs, err := s.store.RecordsByDocument(ctx, s.id, string(normalize.References), code)
	if err != nil {
		return nil, err
	}
	citations := make(ir.Array, 0, len(refs))
	for _, ref := range refs {
		if ref.Collection != collection {
			continue
		}
		obj, err := decode(ref)
		if err != nil {
			return nil, err
		}
		citations = append(citations, obj)
	}
	payload[keyCitations] = citations
	return payload, nil
}

func (s *Session) load(ctx context.Context, entity normalize.Entity, collection, code string) (ir.Object, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rec, err := s.store.GetRecord(ctx, s.id, string(entity), code)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Collection != collection {
		return nil, nil
	}
	return decode(*rec)
}

// attach loads a related record into payload[key] when code is set and the
// record is staged.
func (s *Session) attach(ctx context.Context, payload ir.Object, key string, entity normalize.Entity, collection, code string) error {
	if code == "" {
		return nil
	}
	related, err := s.load(ctx, entity, collection, code)
	if err != nil {
		return err
	}
	if related != nil {
		payload[key] = related
	}
	return nil
}

func envelope(rec ir.Object) ir.Object {
	return ir.Object{
		"collection":      ir.String(rec.Str("collection")),
		"code":            ir.String(rec.Str("code")),
		"processing_date": ir.String(rec.Str("processing_date")),
	}
}

func decode(rec store.Record) (ir.Object, error) {
	obj, err := ir.UnmarshalObject(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s record %s: %w", rec.Entity, rec.Code, err)
	}
	return obj, nil
}
