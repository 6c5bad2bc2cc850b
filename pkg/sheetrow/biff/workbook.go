package biff

import (
	"fmt"
	"sort"
)

// CellType identifies the kind of value stored in a Cell.
type CellType uint8

const (
	CellBlank CellType = iota
	CellLabel
	CellNumber
	CellBool
	CellError
	CellFormula
)

// Cell is a single worksheet cell.
//
// For CellFormula, Result holds the type of the cached formula result and the
// matching value field (Str, Num, Bool or Err) holds the value. A formula with
// an empty string result has Result == CellBlank.
type Cell struct {
	Type   CellType
	Str    string
	Num    float64
	Bool   bool
	Err    byte
	Result CellType

	// NumFmt is the number format id resolved through the cell's XF record.
	NumFmt uint16
}

// Row is a physically present worksheet row.
type Row struct {
	cells map[int]Cell
}

// LastCol returns the index of the last cell in the row, or -1 when the row
// has no cells.
func (r *Row) LastCol() int {
	last := -1
	for c := range r.cells {
		if c > last {
			last = c
		}
	}
	return last
}

// Cell returns the cell at col.
func (r *Row) Cell(col int) (Cell, bool) {
	c, ok := r.cells[col]
	return c, ok
}

func (r *Row) columns() []int {
	cols := make([]int, 0, len(r.cells))
	for c := range r.cells {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

// Sheet is a worksheet.
type Sheet struct {
	Name string

	// Visibility is the BOUNDSHEET hsState: 0 visible, 1 hidden, 2 very hidden.
	Visibility byte

	rows map[int]*Row
}

// Row returns the row at index r, or nil when it is absent.
func (s *Sheet) Row(r int) *Row {
	return s.rows[r]
}

// LastRow returns the index of the last present row, or -1.
func (s *Sheet) LastRow() int {
	last := -1
	for r := range s.rows {
		if r > last {
			last = r
		}
	}
	return last
}

// AddRow marks row r as present and returns it.
func (s *Sheet) AddRow(r int) (*Row, error) {
	if r < 0 || r >= MaxRows {
		return nil, fmt.Errorf("%w: row %d", ErrOutOfRange, r)
	}
	row, ok := s.rows[r]
	if !ok {
		row = &Row{cells: make(map[int]Cell)}
		s.rows[r] = row
	}
	return row, nil
}

// SetCell stores c at (r, col), creating the row when needed.
func (s *Sheet) SetCell(r, col int, c Cell) error {
	if col < 0 || col >= MaxCols {
		return fmt.Errorf("%w: column %d", ErrOutOfRange, col)
	}
	row, err := s.AddRow(r)
	if err != nil {
		return err
	}
	row.cells[col] = c
	return nil
}

// Cell returns the cell at (r, col).
func (s *Sheet) Cell(r, col int) (Cell, bool) {
	row := s.rows[r]
	if row == nil {
		return Cell{}, false
	}
	return row.Cell(col)
}

func (s *Sheet) rowIndexes() []int {
	idx := make([]int, 0, len(s.rows))
	for r := range s.rows {
		idx = append(idx, r)
	}
	sort.Ints(idx)
	return idx
}

// Workbook is an in-memory legacy workbook.
type Workbook struct {
	// Date1904 reports whether serial dates count from 1904-01-01.
	Date1904 bool

	// Formats maps custom number format ids to their format codes.
	Formats map[uint16]string

	Sheets []*Sheet

	// streams holds root-level compound file streams other than the workbook
	// stream, keyed by their full name.
	streams map[string][]byte
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		Formats: make(map[uint16]string),
		streams: make(map[string][]byte),
	}
}

// AddSheet appends an empty worksheet.
func (wb *Workbook) AddSheet(name string) *Sheet {
	s := &Sheet{Name: name, rows: make(map[int]*Row)}
	wb.Sheets = append(wb.Sheets, s)
	return s
}

// FormatCode returns the custom format code registered for id, if any.
func (wb *Workbook) FormatCode(id uint16) string {
	return wb.Formats[id]
}
