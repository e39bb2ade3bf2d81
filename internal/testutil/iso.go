package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/isissync/internal/isis"
)

// Collection describes the four ISIS databases of a test collection.
// A nil slice still produces an (empty) ISO file; use Missing to leave a
// database out entirely.
type Collection struct {
	Title   []isis.Record
	Issue   []isis.Record
	Artigo  []isis.Record
	Bib4Cit []isis.Record
	Missing []isis.Database
}

// WriteCollection writes the ISO files of a collection under
// root/<collection>/ in Latin-1 and returns root.
func WriteCollection(t testing.TB, root, collection string, c Collection) string {
	t.Helper()

	dir := filepath.Join(root, collection)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	missing := make(map[isis.Database]bool, len(c.Missing))
	for _, db := range c.Missing {
		missing[db] = true
	}

	for db, records := range map[isis.Database][]isis.Record{
		isis.Title:   c.Title,
		isis.Issue:   c.Issue,
		isis.Artigo:  c.Artigo,
		isis.Bib4Cit: c.Bib4Cit,
	} {
		if missing[db] {
			continue
		}
		var buf bytes.Buffer
		w := isis.NewWriter(&buf)
		for _, rec := range records {
			require.NoError(t, w.Write(rec))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(db)+".iso"), buf.Bytes(), 0o644))
	}
	return root
}

// JournalRecord builds a title record for issn.
func JournalRecord(issn, title, processingDate string) isis.Record {
	rec := isis.Record{
		"400": {{isis.PrimaryCode: issn}},
		"100": {{isis.PrimaryCode: title}},
	}
	if processingDate != "" {
		rec["91"] = []isis.Occurrence{{isis.PrimaryCode: processingDate}}
	}
	return rec
}

// IssueRecord builds an issue record from its ISSN and year+order (v36).
func IssueRecord(issn, yearOrder, processingDate string) isis.Record {
	rec := isis.Record{
		"35": {{isis.PrimaryCode: issn}},
		"36": {{isis.PrimaryCode: yearOrder}},
	}
	if processingDate != "" {
		rec["91"] = []isis.Occurrence{{isis.PrimaryCode: processingDate}}
	}
	return rec
}

// ArticleRecord builds an artigo record with an explicit PID.
func ArticleRecord(pid, title, processingDate string) isis.Record {
	rec := isis.Record{
		"880": {{isis.PrimaryCode: pid}},
		"12":  {{isis.PrimaryCode: title, "l": "en"}},
	}
	if processingDate != "" {
		rec["91"] = []isis.Occurrence{{isis.PrimaryCode: processingDate}}
	}
	return rec
}

// ReferenceRecord builds a bib4cit record. Reference PIDs are the citing
// document PID followed by a 5 digit citation index.
func ReferenceRecord(documentPID string, index int, title string) isis.Record {
	return isis.Record{
		"880": {{isis.PrimaryCode: documentPID + padIndex(index)}},
		"18":  {{isis.PrimaryCode: title}},
	}
}

func padIndex(i int) string {
	const digits = "0123456789"
	out := []byte("00000")
	for p := len(out) - 1; p >= 0 && i > 0; p-- {
		out[p] = digits[i%10]
		i /= 10
	}
	return string(out)
}
