package workbook

import (
	"fmt"
	"io"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/biff"
)

type legacyDocument struct {
	wb *biff.Workbook
}

func openXLS(r io.Reader) (*legacyDocument, error) {
	wb, err := biff.Open(r)
	if err != nil {
		return nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return &legacyDocument{wb: wb}, nil
}

// NewXLS wraps an in-memory legacy workbook.
func NewXLS(wb *biff.Workbook) Document {
	return &legacyDocument{wb: wb}
}

func (d *legacyDocument) Format() Format { return FormatXLS }

func (d *legacyDocument) SheetCount() int { return len(d.wb.Sheets) }

func (d *legacyDocument) Sheet(i int) (Sheet, error) {
	if i < 0 || i >= len(d.wb.Sheets) {
		return nil, fmt.Errorf("sheet index %d out of range [0, %d)", i, len(d.wb.Sheets))
	}
	return &legacySheet{doc: d, s: d.wb.Sheets[i]}, nil
}

func (d *legacyDocument) Properties() (map[string]string, error) {
	return d.wb.Properties()
}

func (d *legacyDocument) Write(w io.Writer) error {
	return d.wb.Write(w)
}

func (d *legacyDocument) Close() error {
	d.wb = nil
	return nil
}

func (d *legacyDocument) isDate(id uint16) bool {
	return IsDateFormat(int(id), d.wb.FormatCode(id))
}

type legacySheet struct {
	doc *legacyDocument
	s   *biff.Sheet
}

func (s *legacySheet) Name() string { return s.s.Name }

func (s *legacySheet) LastRow() int { return s.s.LastRow() }

// HasRow ignores ROW records that carry no cells, such as rows that were
// only formatted or resized.
func (s *legacySheet) HasRow(r int) bool {
	row := s.s.Row(r)
	return row != nil && row.LastCol() >= 0
}

func (s *legacySheet) RowWidth(r int) int {
	row := s.s.Row(r)
	if row == nil {
		return 0
	}
	return row.LastCol() + 1
}

func (s *legacySheet) Cell(r, c int) Cell {
	bc, ok := s.s.Cell(r, c)
	if !ok {
		return Cell{}
	}
	date := s.doc.isDate(bc.NumFmt)
	if bc.Type == biff.CellFormula {
		// Only the cached result is available; legacy formulas are not
		// recalculated.
		cell := NewFormulaCell("", func() (Cell, error) {
			return s.result(bc, date)
		})
		cell.Date, cell.Date1904 = date, s.doc.wb.Date1904
		return cell
	}
	return s.value(bc.Type, bc, date)
}

func (s *legacySheet) result(bc biff.Cell, date bool) (Cell, error) {
	if bc.Result == biff.CellError {
		return Cell{}, fmt.Errorf("formula result %s", errorText(bc.Err))
	}
	return s.value(bc.Result, bc, date), nil
}

func (s *legacySheet) value(t biff.CellType, bc biff.Cell, date bool) Cell {
	switch t {
	case biff.CellLabel:
		return Cell{Kind: KindText, Text: bc.Str}
	case biff.CellNumber:
		return Cell{Kind: KindNumber, Number: bc.Num, Date: date, Date1904: s.doc.wb.Date1904}
	case biff.CellBool:
		return Cell{Kind: KindBoolean, Bool: bc.Bool}
	case biff.CellError:
		return Cell{Kind: KindError, Text: errorText(bc.Err)}
	}
	return Cell{}
}

func (s *legacySheet) SetText(r, c int, value string) error {
	return s.s.SetCell(r, c, biff.Cell{Type: biff.CellLabel, Str: value})
}

func errorText(code byte) string {
	if text, ok := biff.ErrorText[code]; ok {
		return text
	}
	return fmt.Sprintf("#ERR%d", code)
}
