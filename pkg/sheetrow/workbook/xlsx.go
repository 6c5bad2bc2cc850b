package workbook

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/biff"
	"github.com/xuri/excelize/v2"
)

type xlsxDocument struct {
	f        *excelize.File
	date1904 bool
	// dateStyles caches IsDateFormat per cell style id.
	dateStyles map[int]bool
	sheets     map[string]*xlsxSheet
}

func openXLSX(r io.Reader) (*xlsxDocument, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	if len(f.GetSheetList()) == 0 {
		f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}
	doc := &xlsxDocument{f: f, dateStyles: make(map[int]bool), sheets: make(map[string]*xlsxSheet)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		doc.date1904 = *props.Date1904
	}
	return doc, nil
}

// NewXLSX wraps an excelize file, typically one built in memory with
// excelize.NewFile.
func NewXLSX(f *excelize.File) (Document, error) {
	doc := &xlsxDocument{f: f, dateStyles: make(map[int]bool), sheets: make(map[string]*xlsxSheet)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		doc.date1904 = *props.Date1904
	}
	return doc, nil
}

func (d *xlsxDocument) Format() Format { return FormatXLSX }

func (d *xlsxDocument) SheetCount() int { return len(d.f.GetSheetList()) }

func (d *xlsxDocument) Sheet(i int) (Sheet, error) {
	list := d.f.GetSheetList()
	if i < 0 || i >= len(list) {
		return nil, fmt.Errorf("sheet index %d out of range [0, %d)", i, len(list))
	}
	name := list[i]
	if s, ok := d.sheets[name]; ok {
		return s, nil
	}
	s := &xlsxSheet{doc: d, name: name}
	d.sheets[name] = s
	return s, nil
}

func (d *xlsxDocument) Properties() (map[string]string, error) {
	dp, err := d.f.GetDocProps()
	if err != nil {
		return nil, err
	}
	props := make(map[string]string)
	add := func(k, v string) {
		if v != "" {
			props[k] = v
		}
	}
	add("Title", dp.Title)
	add("Subject", dp.Subject)
	add("Author", dp.Creator)
	add("Keywords", dp.Keywords)
	add("Comments", dp.Description)
	add("LastAuthor", dp.LastModifiedBy)
	add("Category", dp.Category)
	add("Created", dp.Created)
	add("Modified", dp.Modified)
	add("Revision", dp.Revision)
	add("ContentStatus", dp.ContentStatus)
	add("Language", dp.Language)
	add("Version", dp.Version)
	add("Identifier", dp.Identifier)
	return props, nil
}

func (d *xlsxDocument) Write(w io.Writer) error {
	return d.f.Write(w)
}

func (d *xlsxDocument) Close() error {
	return d.f.Close()
}

// isDateStyle reports whether a cell style carries a date number format.
func (d *xlsxDocument) isDateStyle(id int) bool {
	if id == 0 {
		return false
	}
	if v, ok := d.dateStyles[id]; ok {
		return v
	}
	var date bool
	if st, err := d.f.GetStyle(id); err == nil && st != nil {
		code := ""
		if st.CustomNumFmt != nil {
			code = *st.CustomNumFmt
		}
		date = IsDateFormat(st.NumFmt, code)
	}
	d.dateStyles[id] = date
	return date
}

type xlsxSheet struct {
	doc  *xlsxDocument
	name string
	// rows holds GetRows output until the next write.
	rows   [][]string
	loaded bool
}

func (s *xlsxSheet) Name() string { return s.name }

func (s *xlsxSheet) load() [][]string {
	if !s.loaded {
		rows, err := s.doc.f.GetRows(s.name, excelize.Options{RawCellValue: true})
		if err != nil {
			rows = nil
		}
		s.rows, s.loaded = rows, true
	}
	return s.rows
}

func (s *xlsxSheet) LastRow() int {
	rows := s.load()
	for r := len(rows) - 1; r >= 0; r-- {
		if len(rows[r]) > 0 {
			return r
		}
	}
	return -1
}

func (s *xlsxSheet) HasRow(r int) bool {
	return s.RowWidth(r) > 0
}

func (s *xlsxSheet) RowWidth(r int) int {
	rows := s.load()
	if r < 0 || r >= len(rows) {
		return 0
	}
	return len(rows[r])
}

func (s *xlsxSheet) Cell(r, c int) Cell {
	if c < 0 || c >= s.RowWidth(r) {
		return Cell{}
	}
	name, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return Cell{}
	}
	f := s.doc.f

	if formula, _ := f.GetCellFormula(s.name, name); formula != "" {
		date := s.dateCell(name)
		cell := NewFormulaCell(formula, func() (Cell, error) {
			return s.evaluate(name, date)
		})
		cell.Date, cell.Date1904 = date, s.doc.date1904
		return cell
	}

	typ, err := f.GetCellType(s.name, name)
	if err != nil {
		return Cell{}
	}
	raw, err := f.GetCellValue(s.name, name, excelize.Options{RawCellValue: true})
	if err != nil || raw == "" {
		return Cell{}
	}
	switch typ {
	case excelize.CellTypeBool:
		return Cell{Kind: KindBoolean, Bool: raw == "1" || raw == "TRUE" || raw == "true"}
	case excelize.CellTypeError:
		return Cell{Kind: KindError, Text: raw}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return Cell{Kind: KindNumber, Number: v, Date: s.dateCell(name), Date1904: s.doc.date1904}
		}
	}
	return Cell{Kind: KindText, Text: raw}
}

// dateCell looks up the style of an existing cell. GetCellStyle pads the
// sheet XML up to the reference, so it is never called for missing cells.
func (s *xlsxSheet) dateCell(name string) bool {
	style, err := s.doc.f.GetCellStyle(s.name, name)
	if err != nil {
		return false
	}
	return s.doc.isDateStyle(style)
}

// evaluate runs the excelize calculation engine for one cell and types its
// textual result.
func (s *xlsxSheet) evaluate(name string, date bool) (Cell, error) {
	result, err := s.doc.f.CalcCellValue(s.name, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, err
	}
	if _, ok := biff.ErrorCode(result); ok {
		return Cell{}, fmt.Errorf("formula %s!%s: %s", s.name, name, result)
	}
	switch result {
	case "":
		return Cell{}, nil
	case "TRUE":
		return Cell{Kind: KindBoolean, Bool: true}, nil
	case "FALSE":
		return Cell{Kind: KindBoolean}, nil
	}
	if v, err := strconv.ParseFloat(result, 64); err == nil {
		return Cell{Kind: KindNumber, Number: v, Date: date, Date1904: s.doc.date1904}, nil
	}
	return Cell{Kind: KindText, Text: result}, nil
}

func (s *xlsxSheet) SetText(r, c int, value string) error {
	name, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return err
	}
	f := s.doc.f
	s.loaded, s.rows = false, nil
	if err := f.SetCellFormula(s.name, name, ""); err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, name, name, 0); err != nil {
		return err
	}
	return f.SetCellStr(s.name, name, value)
}
