package isis

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing ISO file for a collection database.
type NotFoundError struct {
	Collection string
	Database   Database
	URL        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ISO file does not exist for collection %q (%s): check the collection acronym or the ISO path %s",
		e.Collection, e.Database, e.URL)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// FormatError reports a malformed ISO record. Offset is the byte position of
// the record leader in the line-joined stream.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed ISO record at offset %d: %s", e.Offset, e.Reason)
}
