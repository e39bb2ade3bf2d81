package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Entity is a reconciled entity type.
type Entity string

const (
	Documents Entity = "documents"
	Journals  Entity = "journals"
	Issues    Entity = "issues"
)

// Entities lists the entity types in execution order.
var Entities = []Entity{Documents, Journals, Issues}

const keySeparator = "_"

// DocumentKey builds the identifier key of a document or issue:
// collection_code_YYYYMMDD.
func DocumentKey(collection, code, processingDate string) string {
	return collection + keySeparator + code + keySeparator + strings.ReplaceAll(processingDate, "-", "")
}

// IssueKey builds the identifier key of an issue. It has the same shape as
// a document key.
func IssueKey(collection, code, processingDate string) string {
	return DocumentKey(collection, code, processingDate)
}

// JournalKey builds the identifier key of a journal: collection_code.
func JournalKey(collection, code string) string {
	return collection + keySeparator + code
}

// SplitKey recovers the collection and code of an identifier key.
func SplitKey(key string) (collection, code string, err error) {
	parts := strings.Split(key, keySeparator)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed identifier key %q", key)
	}
	return parts[0], parts[1], nil
}

// KeySet is a set of identifier keys.
type KeySet map[string]struct{}

// NewKeySet builds a set from keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts key.
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// Has reports membership.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Minus returns the keys of s absent from other, sorted.
func (s KeySet) Minus(other KeySet) []string {
	var out []string
	for k := range s {
		if !other.Has(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// KeySets holds one KeySet per entity.
type KeySets map[Entity]KeySet

// NewKeySets returns empty sets for every entity.
func NewKeySets() KeySets {
	return KeySets{
		Documents: KeySet{},
		Journals:  KeySet{},
		Issues:    KeySet{},
	}
}
