// Package workbook is the container-neutral spreadsheet model used by the
// row codec: documents, sheets and typed cells, backed either by excelize for
// zip/XML workbooks or by the biff package for legacy binary workbooks.
package workbook

import (
	"errors"
	"io"
)

// Kind is the tag of a Cell.
type Kind uint8

const (
	KindBlank Kind = iota
	KindText
	KindNumber
	KindBoolean
	KindFormula
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindFormula:
		return "formula"
	case KindError:
		return "error"
	}
	return "unknown"
}

// ErrNoEvaluator is returned by Evaluate for formula cells not bound to a
// document.
var ErrNoEvaluator = errors.New("formula cell has no evaluator")

// Cell is a tagged cell value.
type Cell struct {
	Kind Kind

	// Text holds the string of a text cell, or the error literal
	// ("#DIV/0!") of an error cell.
	Text string

	Number float64
	Bool   bool

	// Date is set on numeric cells whose number format is a date or time
	// format. Date1904 selects the 1904 serial epoch.
	Date     bool
	Date1904 bool

	// Formula is the formula expression when the backend retains it.
	Formula string

	eval func() (Cell, error)
}

// NewFormulaCell returns a formula cell that evaluates through eval.
func NewFormulaCell(formula string, eval func() (Cell, error)) Cell {
	return Cell{Kind: KindFormula, Formula: formula, eval: eval}
}

// Evaluate computes the value of a formula cell. The result is never a
// formula. Non-formula cells evaluate to themselves.
func (c Cell) Evaluate() (Cell, error) {
	if c.Kind != KindFormula {
		return c, nil
	}
	if c.eval == nil {
		return Cell{}, ErrNoEvaluator
	}
	return c.eval()
}

// Format identifies a container format.
type Format int

const (
	FormatUnknown Format = iota
	// FormatXLSX is the zip/XML container (.xlsx).
	FormatXLSX
	// FormatXLS is the legacy BIFF8 compound file (.xls).
	FormatXLS
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	}
	return "unknown"
}

// Sheet is a worksheet of an open Document. Rows and columns are 0-based.
type Sheet interface {
	Name() string
	// LastRow returns the index of the last present row, or -1.
	LastRow() int
	// HasRow reports whether row r is physically present.
	HasRow(r int) bool
	// RowWidth returns one past the last cell column of row r, 0 when the
	// row is absent or empty.
	RowWidth(r int) int
	// Cell returns the cell at (r, c); missing cells are blank.
	Cell(r, c int) Cell
	// SetText writes a plain text cell at (r, c), creating the row when
	// needed and discarding any previous kind, formula or style.
	SetText(r, c int, value string) error
}

// Document is an opened workbook.
type Document interface {
	Format() Format
	SheetCount() int
	Sheet(i int) (Sheet, error)
	// Properties returns the document properties (title, author, ...) that
	// the container carries.
	Properties() (map[string]string, error)
	// Write serialises the document in its own container format.
	Write(w io.Writer) error
	Close() error
}
