package broker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/isissync/internal/ir"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/normalize"
	"github.com/roach88/isissync/internal/store"
	"github.com/roach88/isissync/internal/testutil"
)

var testNow = time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)

func newTestBroker(t *testing.T) (*Broker, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "broker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b := New(st,
		WithIDGenerator(testutil.NewSequentialIDs("test")),
		WithClock(testutil.NewFixedClock(testNow).Now))
	return b, st
}

func write(t *testing.T, sess *Session, entity normalize.Entity, raw isis.Record) *normalize.Record {
	t.Helper()
	rec, err := normalize.PrepareRecord("scl", raw, testNow)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NoError(t, sess.WriteRecord(context.Background(), entity, rec))
	return rec
}

func stageCollection(t *testing.T, sess *Session) {
	t.Helper()
	write(t, sess, normalize.Journals, testutil.JournalRecord("0032-281X", "Journal A", "20230101"))
	write(t, sess, normalize.Issues, testutil.IssueRecord("0032-281X", "20023", "20230102"))
	write(t, sess, normalize.Articles, testutil.ArticleRecord("S0032-281X2002000300001", "Article", "20230103"))
	write(t, sess, normalize.References, testutil.ReferenceRecord("S0032-281X2002000300001", 2, "Ref two"))
	write(t, sess, normalize.References, testutil.ReferenceRecord("S0032-281X2002000300001", 1, "Ref one"))
	write(t, sess, normalize.References, testutil.ReferenceRecord("S0032-281X2002000300009", 1, "Other"))
}

func TestSession_Identifiers(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer sess.Close()
	assert.Equal(t, "test-1", sess.ID())

	stageCollection(t, sess)

	journals, err := sess.JournalsIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Identifier{{Collection: "scl", Code: "0032-281X", ProcessingDate: "2023-01-01"}}, journals)

	issues, err := sess.IssuesIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Identifier{{Collection: "scl", Code: "0032-281X20020003", ProcessingDate: "2023-01-02"}}, issues)

	articles, err := sess.ArticlesIDs(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "S0032-281X2002000300001", articles[0].Code)

	n, err := sess.Count(ctx, normalize.References)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSession_LoadJournal(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()
	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer sess.Close()
	stageCollection(t, sess)

	payload, err := sess.LoadJournal(ctx, "scl", "0032-281X")
	require.NoError(t, err)
	require.NotNil(t, payload)

	assert.Equal(t, "scl", payload.Str("collection"))
	assert.Equal(t, "0032-281X", payload.Str("code"))
	assert.Equal(t, "2023-01-01", payload.Str("processing_date"))
	title, ok := payload["title"].(ir.Object)
	require.True(t, ok)
	assert.Equal(t, "0032-281X", title.Str("code"))
}

func TestSession_LoadIssue(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()
	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer sess.Close()
	stageCollection(t, sess)

	payload, err := sess.LoadIssue(ctx, "scl", "0032-281X20020003")
	require.NoError(t, err)
	require.NotNil(t, payload)

	assert.Equal(t, "0032-281X20020003", payload["issue"].(ir.Object).Str("code"))
	assert.Equal(t, "0032-281X", payload["title"].(ir.Object).Str("code"))
}

func TestSession_LoadDocument(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()
	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer sess.Close()
	stageCollection(t, sess)

	payload, err := sess.LoadDocument(ctx, "scl", "S0032-281X2002000300001")
	require.NoError(t, err)
	require.NotNil(t, payload)

	assert.Equal(t, "2023-01-03", payload.Str("processing_date"))
	assert.Equal(t, "S0032-281X2002000300001", payload["article"].(ir.Object).Str("code"))
	assert.Equal(t, "0032-281X20020003", payload["issue"].(ir.Object).Str("code"))
	assert.Equal(t, "0032-281X", payload["title"].(ir.Object).Str("code"))

	citations, ok := payload["citations"].(ir.Array)
	require.True(t, ok)
	require.Len(t, citations, 2, "only references of this document")
	assert.Equal(t, "S0032-281X200200030000100001", citations[0].(ir.Object).Str("code"))
	assert.Equal(t, "S0032-281X200200030000100002", citations[1].(ir.Object).Str("code"))
}

func TestSession_LoadMissingReturnsNil(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()
	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer sess.Close()
	stageCollection(t, sess)

	doc, err := sess.LoadDocument(ctx, "scl", "S9999-99992002000300001")
	assert.NoError(t, err)
	assert.Nil(t, doc)

	journal, err := sess.LoadJournal(ctx, "other", "0032-281X")
	assert.NoError(t, err)
	assert.Nil(t, journal, "collection must match")
}

func TestSession_LoadDocumentWithoutRelated(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()
	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer sess.Close()

	write(t, sess, normalize.Articles, testutil.ArticleRecord("S0032-281X2002000300001", "Alone", ""))

	payload, err := sess.LoadDocument(ctx, "scl", "S0032-281X2002000300001")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.NotContains(t, payload, "title")
	assert.NotContains(t, payload, "issue")
	assert.Equal(t, ir.Array{}, payload["citations"])
	assert.Equal(t, "2024-05-17", payload.Str("processing_date"))
}

func TestSession_CloseOnceAndCleansUp(t *testing.T) {
	b, st := newTestBroker(t)
	ctx := context.Background()
	sess, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	stageCollection(t, sess)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	exists, err := st.SessionExists(ctx, sess.ID())
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := st.CountRecords(ctx, sess.ID(), string(normalize.Journals))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = sess.JournalsIDs(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = sess.LoadJournal(ctx, "scl", "0032-281X")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWithSession_ReleasesOnError(t *testing.T) {
	b, st := newTestBroker(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var id string
	err := b.WithSession(ctx, "scl", func(sess *Session) error {
		id = sess.ID()
		stageCollection(t, sess)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := st.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists, "session released even when fn fails")
}

func TestWithSession_ReleasesOnPanic(t *testing.T) {
	b, st := newTestBroker(t)
	ctx := context.Background()

	var id string
	assert.Panics(t, func() {
		_ = b.WithSession(ctx, "scl", func(sess *Session) error {
			id = sess.ID()
			panic("scan exploded")
		})
	})

	exists, err := st.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSessions_Isolated(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	first, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer first.Close()
	second, err := b.Open(ctx, "scl")
	require.NoError(t, err)
	defer second.Close()

	stageCollection(t, first)

	ids, err := second.JournalsIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
