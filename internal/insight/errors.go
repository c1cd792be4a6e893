package insight

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by status queries for unknown job or
// restaurant identifiers.
var ErrNotFound = errors.New("not found")

// ConflictError signals that admission was rejected because a pending or
// running job already exists for the place ID. Callers recover by
// polling the existing job.
type ConflictError struct {
	JobID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scrape job already in progress (job_id: %s)", e.JobID)
}

// AsConflict unwraps err into a ConflictError if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
