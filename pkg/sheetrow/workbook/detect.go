package workbook

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedFormat indicates that neither container parser accepted the
// input.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// FormatError carries the failures of both parse attempts. It matches
// ErrUnsupportedFormat.
type FormatError struct {
	XLSX error
	XLS  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v (xlsx: %v; xls: %v)", ErrUnsupportedFormat, e.XLSX, e.XLS)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// OpenFunc returns a fresh, unconsumed stream over the same content each
// time it is called.
type OpenFunc func() (io.ReadCloser, error)

// Detect opens a document, first as a zip/XML workbook and, when that fails,
// from a fresh stream as a legacy binary workbook. Errors from open are
// returned unchanged.
func Detect(open OpenFunc) (Document, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	xdoc, xlsxErr := openXLSX(rc)
	rc.Close()
	if xlsxErr == nil {
		return xdoc, nil
	}

	rc, err = open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ldoc, xlsErr := openXLS(rc)
	if xlsErr == nil {
		return ldoc, nil
	}
	return nil, &FormatError{XLSX: xlsxErr, XLS: xlsErr}
}
