// Package normalize turns raw ISIS records into identified records.
//
// PrepareRecord renames numeric tags to their "v" form, derives the record
// PID and stamps the collection, processing date and hierarchical ids.
// Scanner drains the four collection databases through PrepareRecord,
// applying the optional ISSN filter.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/isissync/internal/ir"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/pid"
)

// Entity is the kind of record a database holds.
type Entity string

const (
	Journals   Entity = "journals"
	Issues     Entity = "issues"
	Articles   Entity = "articles"
	References Entity = "references"
)

// EntityFor maps a collection database to the entity it holds.
func EntityFor(db isis.Database) Entity {
	switch db {
	case isis.Title:
		return Journals
	case isis.Issue:
		return Issues
	case isis.Artigo:
		return Articles
	case isis.Bib4Cit:
		return References
	default:
		return Entity(db)
	}
}

// Record is a normalized ISIS record.
type Record struct {
	Collection string
	Code       string
	// ProcessingDate is formatted YYYY-MM-DD.
	ProcessingDate string
	Journal        string
	Issue          string
	Document       string
	// Fields holds the record fields under "v" prefixed tags.
	Fields isis.Record
}

// CompactDate returns the processing date without dashes (YYYYMMDD), the
// form used in identifier keys.
func (r *Record) CompactDate() string {
	return strings.ReplaceAll(r.ProcessingDate, "-", "")
}

// Object returns the record as a flat value tree: one array of subfield
// objects per field, plus the derived metadata keys.
func (r *Record) Object() ir.Object {
	obj := make(ir.Object, len(r.Fields)+6)
	for tag, occs := range r.Fields {
		arr := make(ir.Array, len(occs))
		for i, occ := range occs {
			sub := make(ir.Object, len(occ))
			for code, value := range occ {
				sub[code] = ir.String(value)
			}
			arr[i] = sub
		}
		obj[tag] = arr
	}

	obj["collection"] = ir.String(r.Collection)
	obj["code"] = ir.String(r.Code)
	obj["processing_date"] = ir.String(r.ProcessingDate)
	for key, value := range map[string]string{
		"journal":  r.Journal,
		"issue":    r.Issue,
		"document": r.Document,
	} {
		if value != "" {
			obj[key] = ir.String(value)
		}
	}
	return obj
}

// PrepareRecord normalizes a raw record for a collection.
//
// It returns (nil, nil) when no PID can be derived: such records are dropped,
// not reported. An error means the record is inconsistent (for instance an
// unparsable processing date) and must be skipped by the caller.
//
// now supplies the processing date of records without v91.
func PrepareRecord(collection string, raw isis.Record, now time.Time) (*Record, error) {
	fields := make(isis.Record, len(raw)+2)
	for tag, occs := range raw {
		if isDigits(tag) {
			tag = "v" + tag
		}
		fields[tag] = occs
	}

	code, ok := pid.Derive(
		fields.Primary("v880"),
		fields.Primary("v35"),
		fields.Primary("v36"),
		fields.Primary("v400"),
	)
	if !ok {
		return nil, nil
	}

	processingDate, err := parseProcessingDate(fields.Primary("v91"), now)
	if err != nil {
		return nil, err
	}

	fields["v992"] = []isis.Occurrence{{isis.PrimaryCode: collection}}
	fields["v880"] = []isis.Occurrence{{isis.PrimaryCode: code}}

	parts := pid.Decompose(code)
	return &Record{
		Collection:     collection,
		Code:           code,
		ProcessingDate: processingDate,
		Journal:        parts.Journal,
		Issue:          parts.Issue,
		Document:       parts.Document,
		Fields:         fields,
	}, nil
}

// parseProcessingDate reads v91 (YYYYMMDD or YYYY-MM-DD) and returns it as
// YYYY-MM-DD. An empty value falls back to now.
func parseProcessingDate(v91 string, now time.Time) (string, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(v91), "-", "")
	if compact == "" {
		return now.Format(time.DateOnly), nil
	}
	t, err := time.Parse("20060102", compact)
	if err != nil {
		return "", fmt.Errorf("invalid processing date %q", v91)
	}
	return t.Format(time.DateOnly), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
