package sheetrow

import (
	"errors"
	"fmt"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/workbook"
)

// ErrNotOpen indicates an operation that needs an open document was called
// on a closed session.
var ErrNotOpen = errors.New("no document is open")

// ErrNotMapped indicates the active sheet has no header row.
var ErrNotMapped = errors.New("header row is not mapped")

// ErrUnsupportedFormat indicates neither container parser accepted the
// input.
var ErrUnsupportedFormat = workbook.ErrUnsupportedFormat

// IOError represents a failure to open, read or write the backing storage.
type IOError struct {
	Op     string // "open", "read", "write"
	Handle string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Handle, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(op, handle string, err error) *IOError {
	return &IOError{
		Op:     op,
		Handle: handle,
		Err:    err,
	}
}
