package normalize

import (
	"errors"
	"fmt"

	"github.com/roach88/isissync/internal/isis"
)

// IntegrityError reports a record that could not be normalized.
type IntegrityError struct {
	Database isis.Database
	// Index is the 1-based position of the record in its database.
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error in %s record %d: %s", e.Database, e.Index, e.Reason)
}

// IsIntegrityError returns true if err is an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
