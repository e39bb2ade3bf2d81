// Package pid derives canonical identifiers (PIDs) from legacy ISIS field values.
//
// A PID encodes its own kind through its length:
//
//	 9  journal           0032-281X
//	17  issue             0032-281X20020003
//	23  document          S0032-281X2002000300001
//	28  document variant  S0032-281X200200030000100012  (citation of a document)
//
// Issue and document PIDs embed the PIDs of their owners, so a single PID
// is enough to recover the journal/issue/document hierarchy.
package pid

import (
	"fmt"
	"strconv"
	"strings"
)

// Lengths of the PID kinds.
const (
	JournalLength         = 9
	IssueLength           = 17
	DocumentLength        = 23
	DocumentVariantLength = 28
)

// Kind classifies a PID by its length.
type Kind string

const (
	KindJournal         Kind = "journal"
	KindIssue           Kind = "issue"
	KindDocument        Kind = "document"
	KindDocumentVariant Kind = "document_variant"
	KindUnknown         Kind = "unknown"
)

// Parts is the hierarchical decomposition of a PID.
// Empty strings mean the PID kind carries no such identifier.
type Parts struct {
	Kind     Kind
	Journal  string
	Issue    string
	Document string
}

// Decompose splits a PID into its journal, issue and document identifiers.
// PIDs of any other length decompose to KindUnknown with no identifiers.
func Decompose(pid string) Parts {
	switch len(pid) {
	case JournalLength:
		return Parts{Kind: KindJournal, Journal: pid}
	case IssueLength:
		return Parts{Kind: KindIssue, Journal: pid[:9], Issue: pid}
	case DocumentLength:
		return Parts{Kind: KindDocument, Journal: pid[1:10], Issue: pid[1:18], Document: pid}
	case DocumentVariantLength:
		return Parts{Kind: KindDocumentVariant, Journal: pid[1:10], Issue: pid[1:18], Document: pid[:23]}
	default:
		return Parts{Kind: KindUnknown}
	}
}

// IssuePID builds the 17 character issue PID from the ISSN (v35) and the
// year+order value (v36).
//
//	v35=0032-281X v36=20023   -> 0032-281X20020003
//	v35=0032-281X v36=200221  -> 0032-281X20020021
//	v35=0032-281X v36=20021-4 -> 0032-281X20020001
//	v35=0032-281X v36=2002    -> 0032-281X20020000
//
// Only the leading run of digits after the year counts as the order. The
// second return value is false when no issue PID can be built.
func IssuePID(issn, yearOrder string) (string, bool) {
	if issn == "" || len(yearOrder) < 4 {
		return "", false
	}
	year := yearOrder[:4]

	digits := leadingDigits(yearOrder[4:])
	order := 0
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil || n > 9999 {
			return "", false
		}
		order = n
	}

	return issn + year + fmt.Sprintf("%04d", order), true
}

// Derive picks the PID of a record by precedence: the explicit PID (v880),
// then the computed issue PID (v35/v36), then the legacy PID (v400).
func Derive(explicit, issn, yearOrder, legacy string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if p, ok := IssuePID(issn, yearOrder); ok {
		return p, true
	}
	if legacy != "" {
		return legacy, true
	}
	return "", false
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// NormalizeISSNs trims and upper-cases issns, dropping blanks and
// duplicates. Order is preserved. Returns nil when nothing is left.
func NormalizeISSNs(issns []string) []string {
	var out []string
	seen := make(map[string]bool, len(issns))
	for _, issn := range issns {
		issn = strings.ToUpper(strings.TrimSpace(issn))
		if issn == "" || seen[issn] {
			continue
		}
		seen[issn] = true
		out = append(out, issn)
	}
	return out
}
