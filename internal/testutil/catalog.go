package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/pid"
)

// CatalogCall is one mutating call observed by FakeCatalog.
type CatalogCall struct {
	Op         string `json:"op" yaml:"op"`
	Collection string `json:"collection" yaml:"collection"`
	Code       string `json:"code" yaml:"code"`
}

// FakeCatalog is an in-memory catalog.Client.
//
// Entries are keyed by kind and code. Failures are injected per code with
// AddErrors and DeleteErrors, or for every delete with DeleteErr.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeCatalog struct {
	mu      sync.Mutex
	entries map[catalog.Kind]map[string]catalog.Identifier
	calls   []CatalogCall

	// AddErrors fails Add* calls whose payload code is a key.
	AddErrors map[string]error
	// DeleteErrors fails Delete* calls for the given codes.
	DeleteErrors map[string]error
	// DeleteErr, when set, fails every Delete* call.
	DeleteErr error
	// ListErr, when set, fails every listing call.
	ListErr error
}

var _ catalog.Client = (*FakeCatalog)(nil)

// NewFakeCatalog creates an empty fake catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		entries: map[catalog.Kind]map[string]catalog.Identifier{
			catalog.KindJournal: {},
			catalog.KindIssue:   {},
			catalog.KindArticle: {},
		},
		AddErrors:    map[string]error{},
		DeleteErrors: map[string]error{},
	}
}

// Seed stores entries without recording calls.
func (f *FakeCatalog) Seed(kind catalog.Kind, ids ...catalog.Identifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.entries[kind][id.Code] = id
	}
}

// Entries returns the stored entries of kind ordered by code.
func (f *FakeCatalog) Entries(kind catalog.Kind) []catalog.Identifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Identifier, 0, len(f.entries[kind]))
	for _, id := range f.entries[kind] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Calls returns the mutating calls in the order they happened.
func (f *FakeCatalog) Calls() []CatalogCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CatalogCall(nil), f.calls...)
}

// CallsTo returns the calls of one operation, e.g. "delete_journal".
func (f *FakeCatalog) CallsTo(op string) []CatalogCall {
	var out []CatalogCall
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeCatalog) Journals(ctx context.Context, collection, issn string) ([]catalog.Identifier, error) {
	return f.list(catalog.KindJournal, collection, issn)
}

func (f *FakeCatalog) Issues(ctx context.Context, collection, issn string) ([]catalog.Identifier, error) {
	return f.list(catalog.KindIssue, collection, issn)
}

func (f *FakeCatalog) Documents(ctx context.Context, collection, issn string) ([]catalog.Identifier, error) {
	return f.list(catalog.KindArticle, collection, issn)
}

func (f *FakeCatalog) AddJournal(ctx context.Context, payload []byte) error {
	return f.add(catalog.KindJournal, payload)
}

func (f *FakeCatalog) AddIssue(ctx context.Context, payload []byte) error {
	return f.add(catalog.KindIssue, payload)
}

func (f *FakeCatalog) AddDocument(ctx context.Context, payload []byte) error {
	return f.add(catalog.KindArticle, payload)
}

func (f *FakeCatalog) DeleteJournal(ctx context.Context, code, collection string) error {
	return f.delete(catalog.KindJournal, code, collection)
}

func (f *FakeCatalog) DeleteIssue(ctx context.Context, code, collection string) error {
	return f.delete(catalog.KindIssue, code, collection)
}

func (f *FakeCatalog) DeleteDocument(ctx context.Context, code, collection string) error {
	return f.delete(catalog.KindArticle, code, collection)
}

func (f *FakeCatalog) list(kind catalog.Kind, collection, issn string) ([]catalog.Identifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	var out []catalog.Identifier
	for _, id := range f.entries[kind] {
		if id.Collection != collection {
			continue
		}
		if issn != "" && pid.Decompose(id.Code).Journal != issn {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *FakeCatalog) add(kind catalog.Kind, payload []byte) error {
	var id catalog.Identifier
	if err := json.Unmarshal(payload, &id); err != nil {
		return fmt.Errorf("fake catalog: decode payload: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, CatalogCall{Op: "add_" + string(kind), Collection: id.Collection, Code: id.Code})
	if err := f.AddErrors[id.Code]; err != nil {
		return err
	}
	if kind == catalog.KindJournal {
		id.ProcessingDate = ""
	}
	f.entries[kind][id.Code] = id
	return nil
}

func (f *FakeCatalog) delete(kind catalog.Kind, code, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, CatalogCall{Op: "delete_" + string(kind), Collection: collection, Code: code})
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if err := f.DeleteErrors[code]; err != nil {
		return err
	}
	if existing, ok := f.entries[kind][code]; ok && existing.Collection == collection {
		delete(f.entries[kind], code)
	}
	return nil
}
