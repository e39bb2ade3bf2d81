package isis

import (
	"sort"
	"strconv"
	"strings"
)

// PrimaryCode is the subfield code holding the text before the first '^'.
const PrimaryCode = "_"

// Occurrence is one repetition of a field, keyed by subfield code.
type Occurrence map[string]string

// Record maps a field tag to its occurrences in directory order.
type Record map[string][]Occurrence

// Primary returns the primary value of the first occurrence of tag.
func (r Record) Primary(tag string) string {
	occs := r[tag]
	if len(occs) == 0 {
		return ""
	}
	return occs[0][PrimaryCode]
}

// Tags returns the record tags in ascending order (numeric tags first,
// compared numerically).
func (r Record) Tags() []string {
	tags := make([]string, 0, len(r))
	for t := range r {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		ni, ei := strconv.Atoi(tags[i])
		nj, ej := strconv.Atoi(tags[j])
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		}
		return tags[i] < tags[j]
	})
	return tags
}

// ParseOccurrence decodes an ISIS field value into subfields.
// Subfield codes are lower-cased; when a code repeats, the first value wins.
func ParseOccurrence(value string) Occurrence {
	occ := Occurrence{}
	parts := strings.Split(value, "^")
	if parts[0] != "" {
		occ[PrimaryCode] = parts[0]
	}
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		code := strings.ToLower(p[:1])
		if _, seen := occ[code]; seen {
			continue
		}
		occ[code] = p[1:]
	}
	return occ
}

// FormatOccurrence is the inverse of ParseOccurrence. Subfields are written
// in code order after the primary value.
func FormatOccurrence(occ Occurrence) string {
	var b strings.Builder
	b.WriteString(occ[PrimaryCode])

	codes := make([]string, 0, len(occ))
	for c := range occ {
		if c != PrimaryCode {
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	for _, c := range codes {
		b.WriteString("^")
		b.WriteString(c)
		b.WriteString(occ[c])
	}
	return b.String()
}

// normalizeTag strips leading zeros from numeric tags ("035" -> "35").
func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if n, err := strconv.Atoi(tag); err == nil {
		return strconv.Itoa(n)
	}
	return tag
}
