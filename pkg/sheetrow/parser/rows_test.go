package parser

import (
	"reflect"
	"testing"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/biff"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/models"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/workbook"
	"github.com/xuri/excelize/v2"
)

// newSheets returns an empty sheet of each container format.
func newSheets(t *testing.T) map[string]workbook.Sheet {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })
	xdoc, err := workbook.NewXLSX(f)
	if err != nil {
		t.Fatalf("NewXLSX failed: %v", err)
	}
	xs, err := xdoc.Sheet(0)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}

	wb := biff.NewWorkbook()
	wb.AddSheet("Sheet1")
	ls, err := workbook.NewXLS(wb).Sheet(0)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}
	return map[string]workbook.Sheet{"xlsx": xs, "xls": ls}
}

func fill(t *testing.T, s workbook.Sheet, rows map[int][]string) {
	t.Helper()
	for r, vals := range rows {
		for c, v := range vals {
			if v == "" {
				continue
			}
			if err := s.SetText(r, c, v); err != nil {
				t.Fatalf("SetText(%d, %d) failed: %v", r, c, err)
			}
		}
	}
}

func headers(t *testing.T, s workbook.Sheet) *HeaderMap {
	t.Helper()
	h, ok := BuildHeaderMap(s)
	if !ok {
		t.Fatalf("Expected header row")
	}
	return h
}

func TestBuildHeaderMap(t *testing.T) {
	for name, s := range newSheets(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok := BuildHeaderMap(s); ok {
				t.Errorf("Expected no header map for an empty sheet")
			}
			fill(t, s, map[int][]string{0: {" PNO ", "Yield", "", "Yield", "OER"}})
			h := headers(t, s)
			if c, _ := h.Index("PNO"); c != 0 {
				t.Errorf("Expected trimmed PNO at 0, got %d", c)
			}
			if c, _ := h.Index("Yield"); c != 3 {
				t.Errorf("Expected duplicate Yield to map to the later column, got %d", c)
			}
			if !reflect.DeepEqual(h.Labels(), []string{"PNO", "Yield", "OER"}) {
				t.Errorf("Unexpected labels %v", h.Labels())
			}
			if !reflect.DeepEqual(h.Duplicates(), []string{"Yield"}) {
				t.Errorf("Unexpected duplicates %v", h.Duplicates())
			}
			if h.Len() != 3 {
				t.Errorf("Expected 3 labels, got %d", h.Len())
			}
		})
	}
}

func TestReadAll(t *testing.T) {
	for name, s := range newSheets(t) {
		t.Run(name, func(t *testing.T) {
			fill(t, s, map[int][]string{
				0: {"PNO", "Yield"},
				1: {"P1", "10"},
				3: {"P3"},
			})
			got := ReadAll(s, headers(t, s))
			expected := []models.Record{
				{"PNO": "P1", "Yield": "10"},
				{"PNO": "P3", "Yield": ""},
			}
			if !reflect.DeepEqual(got, expected) {
				t.Errorf("ReadAll() = %v, expected %v", got, expected)
			}
		})
	}
}

func TestReadAllSkipsRowsWithoutCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	xdoc, err := workbook.NewXLSX(f)
	if err != nil {
		t.Fatalf("NewXLSX failed: %v", err)
	}
	xs, err := xdoc.Sheet(0)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}
	fill(t, xs, map[int][]string{0: {"PNO", "Yield"}, 1: {"P1"}, 3: {"P3", "30"}})
	if err := f.SetRowHeight("Sheet1", 3, 30); err != nil {
		t.Fatalf("SetRowHeight failed: %v", err)
	}

	wb := biff.NewWorkbook()
	bs := wb.AddSheet("Sheet1")
	ls, err := workbook.NewXLS(wb).Sheet(0)
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}
	fill(t, ls, map[int][]string{0: {"PNO", "Yield"}, 1: {"P1"}, 3: {"P3", "30"}})
	if _, err := bs.AddRow(2); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}

	expected := []models.Record{
		{"PNO": "P1", "Yield": ""},
		{"PNO": "P3", "Yield": "30"},
	}
	for name, s := range map[string]workbook.Sheet{"xlsx": xs, "xls": ls} {
		t.Run(name, func(t *testing.T) {
			if s.HasRow(2) {
				t.Errorf("Expected row without cells to be absent")
			}
			got := ReadAll(s, headers(t, s))
			if !reflect.DeepEqual(got, expected) {
				t.Errorf("ReadAll() = %v, expected %v", got, expected)
			}
		})
	}
}

func TestFindByKey(t *testing.T) {
	for name, s := range newSheets(t) {
		t.Run(name, func(t *testing.T) {
			fill(t, s, map[int][]string{
				0: {"PNO", "Yield"},
				1: {"P1", "10"},
				2: {"P2", "20"},
				3: {"P2", "30"},
			})
			h := headers(t, s)
			if rec, ok := FindByKey(s, h, "PNO", "P2"); !ok || rec["Yield"] != "20" {
				t.Errorf("Expected first P2 match, got %v (%v)", rec, ok)
			}
			if _, ok := FindByKey(s, h, "PNO", "P9"); ok {
				t.Errorf("Expected no match for P9")
			}
			if _, ok := FindByKey(s, h, "Missing", "P1"); ok {
				t.Errorf("Expected no match for an unmapped key column")
			}
			if _, ok := FindByKey(s, h, "PNO", "p1"); ok {
				t.Errorf("Expected exact, case-sensitive comparison")
			}
		})
	}
}

func TestUpdateCellScenario(t *testing.T) {
	for name, s := range newSheets(t) {
		t.Run(name, func(t *testing.T) {
			fill(t, s, map[int][]string{0: {"PNO", "Yield"}, 1: {"P1", "10"}})
			h := headers(t, s)

			rec, ok := FindByKey(s, h, "PNO", "P1")
			if !ok || !reflect.DeepEqual(rec, models.Record{"PNO": "P1", "Yield": "10"}) {
				t.Fatalf("Unexpected record %v", rec)
			}

			updated, err := UpdateCell(s, h, "PNO", "P1", "OER", "5.5")
			if err != nil || !updated {
				t.Fatalf("Expected update to succeed, got %v, %v", updated, err)
			}
			if s.RowWidth(0) != 3 || CellToString(s.Cell(0, 2)) != "OER" {
				t.Errorf("Expected OER appended as third header")
			}
			if !reflect.DeepEqual(h.Labels(), []string{"PNO", "Yield", "OER"}) {
				t.Errorf("Header map not rebuilt: %v", h.Labels())
			}
			rec, _ = FindByKey(s, h, "PNO", "P1")
			if !reflect.DeepEqual(rec, models.Record{"PNO": "P1", "Yield": "10", "OER": "5.5"}) {
				t.Errorf("Unexpected record after update %v", rec)
			}

			updated, err = UpdateCell(s, h, "PNO", "P9", "OER", "x")
			if err != nil || updated {
				t.Errorf("Expected update of unknown key to fail softly, got %v, %v", updated, err)
			}
			if s.LastRow() != 1 || s.RowWidth(0) != 3 {
				t.Errorf("Sheet modified by failed update")
			}
		})
	}
}

func TestUpdateCellOverwrite(t *testing.T) {
	for name, s := range newSheets(t) {
		t.Run(name, func(t *testing.T) {
			fill(t, s, map[int][]string{0: {"PNO", "Yield"}, 1: {"P1", "10"}, 2: {"P2", "20"}})
			h := headers(t, s)
			updated, err := UpdateCell(s, h, "PNO", "P2", "Yield", "25")
			if err != nil || !updated {
				t.Fatalf("Expected update to succeed, got %v, %v", updated, err)
			}
			got := ReadAll(s, h)
			expected := []models.Record{{"PNO": "P1", "Yield": "10"}, {"PNO": "P2", "Yield": "25"}}
			if !reflect.DeepEqual(got, expected) {
				t.Errorf("ReadAll() = %v, expected %v", got, expected)
			}
			if s.RowWidth(0) != 2 {
				t.Errorf("Expected no new column")
			}
			if updated, _ := UpdateCell(s, h, "Missing", "P1", "Yield", "1"); updated {
				t.Errorf("Expected unmapped key column to fail")
			}
		})
	}
}

func TestUpdateCellBlankTarget(t *testing.T) {
	for name, s := range newSheets(t) {
		t.Run(name, func(t *testing.T) {
			fill(t, s, map[int][]string{0: {"PNO", "Yield"}, 1: {"P1", "10"}})
			h := headers(t, s)
			for _, label := range []string{"", "   "} {
				updated, err := UpdateCell(s, h, "PNO", "P1", label, "x")
				if err != nil || updated {
					t.Errorf("UpdateCell(%q) = %v, %v; expected false, nil", label, updated, err)
				}
			}
			if s.RowWidth(0) != 2 || s.RowWidth(1) != 2 {
				t.Errorf("Expected sheet untouched, widths %d and %d", s.RowWidth(0), s.RowWidth(1))
			}

			updated, err := UpdateCell(s, h, "PNO", "P1", " Yield ", "11")
			if err != nil || !updated {
				t.Fatalf("Expected padded label to match Yield, got %v, %v", updated, err)
			}
			if rec, _ := FindByKey(s, h, "PNO", "P1"); rec["Yield"] != "11" || s.RowWidth(0) != 2 {
				t.Errorf("Expected Yield overwritten in place, got %v", rec)
			}
		})
	}
}

func TestUpdateCellColumnLimit(t *testing.T) {
	s := newSheets(t)["xls"]
	row := make([]string, biff.MaxCols)
	for i := range row {
		row[i] = "H" + string(rune('A'+i%26)) + string(rune('A'+i/26))
	}
	row[0] = "PNO"
	fill(t, s, map[int][]string{0: row, 1: {"P1"}})
	h := headers(t, s)
	if _, err := UpdateCell(s, h, "PNO", "P1", "Extra", "1"); err == nil {
		t.Errorf("Expected an error past the legacy column limit")
	}
}
