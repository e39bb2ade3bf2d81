package isis

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Database names one of the ISIS master files exported per collection.
type Database string

const (
	Title   Database = "title"
	Issue   Database = "issue"
	Artigo  Database = "artigo"
	Bib4Cit Database = "bib4cit"
)

// Databases lists the collection databases in processing order.
var Databases = []Database{Title, Issue, Artigo, Bib4Cit}

// EncodingByName resolves an ISO file character encoding.
func EncodingByName(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("unsupported ISO encoding %q", name)
	}
}

// Source locates collection ISO files under a root URL. Any URL scheme
// supported by afs works (plain paths, file://, mem://, cloud storage).
type Source struct {
	fs       afs.Service
	root     string
	encoding encoding.Encoding
}

// NewSource creates a Source. A nil fs uses afs.New().
func NewSource(fs afs.Service, root string, enc encoding.Encoding) *Source {
	if fs == nil {
		fs = afs.New()
	}
	if enc == nil {
		enc = charmap.ISO8859_1
	}
	return &Source{fs: fs, root: root, encoding: enc}
}

// URL returns the location of a collection database:
// <root>/<collection>/<database>.iso
func (s *Source) URL(collection string, db Database) string {
	return url.Join(s.root, collection, string(db)+".iso")
}

// Exists reports whether the ISO file of a collection database exists.
func (s *Source) Exists(ctx context.Context, collection string, db Database) (bool, error) {
	return s.fs.Exists(ctx, s.URL(collection, db))
}

// Open opens a collection database for reading. It fails with a
// NotFoundError when the ISO file is absent.
func (s *Source) Open(ctx context.Context, collection string, db Database) (*File, error) {
	location := s.URL(collection, db)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("check ISO file %s: %w", location, err)
	}
	if !exists {
		return nil, &NotFoundError{Collection: collection, Database: db, URL: location}
	}

	rc, err := s.fs.OpenURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open ISO file %s: %w", location, err)
	}

	return &File{
		Reader:   NewReader(rc, WithEncoding(s.encoding)),
		URL:      location,
		Database: db,
		closer:   rc,
	}, nil
}

// File is an open collection database.
type File struct {
	*Reader
	URL      string
	Database Database
	closer   io.Closer
}

// Close releases the underlying file.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}
