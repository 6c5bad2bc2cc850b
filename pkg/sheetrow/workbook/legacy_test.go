package workbook

import (
	"bytes"
	"testing"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/biff"
)

func TestLegacyCells(t *testing.T) {
	data := xlsBytes(t, func(wb *biff.Workbook) {
		s := wb.Sheets[0]
		s.SetCell(0, 0, biff.Cell{Type: biff.CellLabel, Str: "PNO"})
		s.SetCell(0, 1, biff.Cell{Type: biff.CellLabel, Str: "Date"})
		s.SetCell(2, 0, biff.Cell{Type: biff.CellNumber, Num: 7})
		s.SetCell(2, 1, biff.Cell{Type: biff.CellNumber, Num: 45292, NumFmt: 14})
		s.SetCell(2, 2, biff.Cell{Type: biff.CellBool})
		s.SetCell(2, 3, biff.Cell{Type: biff.CellError, Err: 0x07})
		s.SetCell(3, 0, biff.Cell{Type: biff.CellFormula, Result: biff.CellNumber, Num: 3})
		s.SetCell(3, 1, biff.Cell{Type: biff.CellFormula, Result: biff.CellError, Err: 0x07})
	})
	open, _, _ := source(data)
	doc, err := Detect(open)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	defer doc.Close()
	s, _ := doc.Sheet(0)

	if c := s.Cell(0, 0); c.Kind != KindText || c.Text != "PNO" {
		t.Errorf("Expected header text, got %+v", c)
	}
	if s.HasRow(1) {
		t.Errorf("Expected row 1 absent")
	}
	if c := s.Cell(2, 0); c.Kind != KindNumber || c.Number != 7 || c.Date {
		t.Errorf("Expected plain number, got %+v", c)
	}
	if c := s.Cell(2, 1); c.Kind != KindNumber || !c.Date {
		t.Errorf("Expected date number, got %+v", c)
	}
	if c := s.Cell(2, 2); c.Kind != KindBoolean || c.Bool {
		t.Errorf("Expected false, got %+v", c)
	}
	if c := s.Cell(2, 3); c.Kind != KindError || c.Text != "#DIV/0!" {
		t.Errorf("Expected #DIV/0!, got %+v", c)
	}
	if v, err := s.Cell(3, 0).Evaluate(); err != nil || v.Number != 3 {
		t.Errorf("Expected cached result 3, got %+v, %v", v, err)
	}
	if _, err := s.Cell(3, 1).Evaluate(); err == nil {
		t.Errorf("Expected error result to fail evaluation")
	}
	if s.RowWidth(2) != 4 || s.RowWidth(1) != 0 {
		t.Errorf("Unexpected row widths %d/%d", s.RowWidth(2), s.RowWidth(1))
	}
}

func TestLegacySetTextRoundTrip(t *testing.T) {
	wb := biff.NewWorkbook()
	wb.AddSheet("Sheet1")
	doc := NewXLS(wb)
	s, _ := doc.Sheet(0)
	if err := s.SetText(0, 0, "PNO"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetText(1, 0, "P1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetText(0, biff.MaxCols, "too far"); err == nil {
		t.Errorf("Expected column limit error")
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	open, _, _ := source(buf.Bytes())
	again, err := Detect(open)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	s2, _ := again.Sheet(0)
	if c := s2.Cell(1, 0); c.Text != "P1" {
		t.Errorf("Expected P1, got %+v", c)
	}
}
