// Package catalog is the client side of the remote metadata catalog.
//
// The catalog holds journals, issues and articles per collection. The
// reconciliation engine lists their identifiers, submits new payloads and
// deletes stale entries through the Client interface.
package catalog

import "context"

// Kind is a catalog entity kind, as named in the catalog API paths.
type Kind string

const (
	KindJournal Kind = "journal"
	KindIssue   Kind = "issue"
	KindArticle Kind = "article"
)

// Identifier is the identity of a catalog entry. Journals carry no
// processing date.
type Identifier struct {
	Collection     string `json:"collection"`
	Code           string `json:"code"`
	ProcessingDate string `json:"processing_date,omitempty"`
}

// Client talks to the remote catalog.
//
// Listing calls take an optional ISSN; "" lists the whole collection.
// Add calls take a serialized JSON payload. Delete calls fail with an error
// wrapping ErrUnauthorized when the admin token is rejected, and add calls
// fail with a *ServerError when the catalog reports a server-side failure.
type Client interface {
	Journals(ctx context.Context, collection, issn string) ([]Identifier, error)
	Issues(ctx context.Context, collection, issn string) ([]Identifier, error)
	Documents(ctx context.Context, collection, issn string) ([]Identifier, error)

	AddJournal(ctx context.Context, payload []byte) error
	AddIssue(ctx context.Context, payload []byte) error
	AddDocument(ctx context.Context, payload []byte) error

	DeleteJournal(ctx context.Context, code, collection string) error
	DeleteIssue(ctx context.Context, code, collection string) error
	DeleteDocument(ctx context.Context, code, collection string) error
}
