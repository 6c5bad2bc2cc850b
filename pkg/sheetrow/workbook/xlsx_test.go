package workbook

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func openXLSXBytes(t *testing.T, data []byte) Document {
	t.Helper()
	open, _, _ := source(data)
	doc, err := Detect(open)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestXLSXCells(t *testing.T) {
	data := xlsxBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "  PNO ")
		f.SetCellValue("Sheet1", "B1", 42)
		f.SetCellValue("Sheet1", "C1", 42.5)
		f.SetCellBool("Sheet1", "D1", true)
		f.SetCellValue("Sheet1", "E1", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
		f.SetCellFormula("Sheet1", "A3", "B1*2")
		f.SetCellValue("Sheet1", "B3", "after")
		f.SetCellFormula("Sheet1", "C3", "1/0")
		f.SetCellValue("Sheet1", "D3", "end")
	})
	doc := openXLSXBytes(t, data)
	if doc.SheetCount() != 1 {
		t.Fatalf("Expected 1 sheet, got %d", doc.SheetCount())
	}
	s, err := doc.Sheet(0)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}

	if c := s.Cell(0, 0); c.Kind != KindText || c.Text != "  PNO " {
		t.Errorf("A1 = %+v, expected raw text", c)
	}
	if c := s.Cell(0, 1); c.Kind != KindNumber || c.Number != 42 || c.Date {
		t.Errorf("B1 = %+v, expected number 42", c)
	}
	if c := s.Cell(0, 2); c.Kind != KindNumber || c.Number != 42.5 {
		t.Errorf("C1 = %+v, expected number 42.5", c)
	}
	if c := s.Cell(0, 3); c.Kind != KindBoolean || !c.Bool {
		t.Errorf("D1 = %+v, expected boolean true", c)
	}
	if c := s.Cell(0, 4); c.Kind != KindNumber || !c.Date {
		t.Errorf("E1 = %+v, expected date-formatted number", c)
	}
	if c := s.Cell(0, 10); c.Kind != KindBlank {
		t.Errorf("K1 = %+v, expected blank", c)
	}

	f := s.Cell(2, 0)
	if f.Kind != KindFormula || f.Formula != "B1*2" {
		t.Fatalf("A3 = %+v, expected formula", f)
	}
	v, err := f.Evaluate()
	if err != nil || v.Kind != KindNumber || v.Number != 84 {
		t.Errorf("A3 evaluated to %+v, %v; expected 84", v, err)
	}
	if _, err := s.Cell(2, 2).Evaluate(); err == nil {
		t.Errorf("Expected 1/0 to fail evaluation")
	}

	if s.HasRow(1) {
		t.Errorf("Expected row 1 to be absent")
	}
	if s.LastRow() != 2 {
		t.Errorf("Expected last row 2, got %d", s.LastRow())
	}
	if s.RowWidth(0) != 5 {
		t.Errorf("Expected header width 5, got %d", s.RowWidth(0))
	}
}

func TestXLSXSetTextOverwritesFormula(t *testing.T) {
	data := xlsxBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "PNO")
		f.SetCellFormula("Sheet1", "A2", "1+1")
		f.SetCellValue("Sheet1", "B2", 1)
	})
	doc := openXLSXBytes(t, data)
	s, _ := doc.Sheet(0)

	if err := s.SetText(1, 0, "P1"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if err := s.SetText(4, 2, "new"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if c := s.Cell(1, 0); c.Kind != KindText || c.Text != "P1" {
		t.Errorf("Expected text P1, got %+v", c)
	}
	if s.LastRow() != 4 || s.RowWidth(4) != 3 {
		t.Errorf("Expected row 4 of width 3, got last=%d width=%d", s.LastRow(), s.RowWidth(4))
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	again := openXLSXBytes(t, buf.Bytes())
	s2, _ := again.Sheet(0)
	if c := s2.Cell(4, 2); c.Text != "new" {
		t.Errorf("Expected written text to persist, got %+v", c)
	}
	if c := s2.Cell(1, 0); c.Kind != KindText {
		t.Errorf("Expected formula to be cleared, got %+v", c)
	}
}

func TestXLSXProperties(t *testing.T) {
	data := xlsxBytes(t, func(f *excelize.File) {
		f.SetDocProps(&excelize.DocProperties{Title: "Yields", Creator: "lab"})
	})
	props, err := openXLSXBytes(t, data).Properties()
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if props["Title"] != "Yields" || props["Author"] != "lab" {
		t.Errorf("Unexpected properties: %v", props)
	}
}
