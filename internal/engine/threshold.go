package engine

import (
	"errors"
	"fmt"
)

// Default removal thresholds.
const (
	DefaultDocumentThreshold = 2000
	DefaultJournalThreshold  = 5
	DefaultIssueThreshold    = 20
)

// Thresholds caps the size of a removal batch per entity type.
//
// A removal batch larger than its threshold is skipped entirely and left
// for an operator to review.
type Thresholds struct {
	Documents int `json:"documents" yaml:"documents"`
	Journals  int `json:"journals" yaml:"journals"`
	Issues    int `json:"issues" yaml:"issues"`
}

// DefaultThresholds returns 2000 documents, 5 journals and 20 issues.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Documents: DefaultDocumentThreshold,
		Journals:  DefaultJournalThreshold,
		Issues:    DefaultIssueThreshold,
	}
}

// Limit returns the threshold of entity.
func (t Thresholds) Limit(entity Entity) int {
	switch entity {
	case Documents:
		return t.Documents
	case Journals:
		return t.Journals
	case Issues:
		return t.Issues
	default:
		return 0
	}
}

// Check validates a removal batch size against the threshold of entity.
//
// Returns ThresholdExceededError when count is strictly greater than the
// limit. A batch of exactly the limit is allowed.
func (t Thresholds) Check(entity Entity, count int) error {
	limit := t.Limit(entity)
	if count > limit {
		return &ThresholdExceededError{
			Entity: entity,
			Count:  count,
			Limit:  limit,
		}
	}
	return nil
}

// ThresholdExceededError is returned when a removal batch is too large.
//
// The executor treats it as a skip of that batch, never as a run failure.
type ThresholdExceededError struct {
	Entity Entity // Entity type of the batch
	Count  int    // Number of removals planned
	Limit  int    // Maximum allowed removals
}

// Error implements the error interface.
func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("%s removal batch exceeds threshold: %d removals > %d limit",
		e.Entity, e.Count, e.Limit)
}

// IsThresholdExceeded returns true if the error is a ThresholdExceededError.
// Uses errors.As to handle wrapped errors.
func IsThresholdExceeded(err error) bool {
	var te *ThresholdExceededError
	return errors.As(err, &te)
}
