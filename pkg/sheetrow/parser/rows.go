package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/models"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/workbook"
)

// ReadAll returns one record per present data row, skipping row 0.
func ReadAll(s workbook.Sheet, h *HeaderMap) []models.Record {
	var result []models.Record
	last := s.LastRow()
	for r := 1; r <= last; r++ {
		if !s.HasRow(r) {
			continue
		}
		result = append(result, record(s, h, r))
	}
	return result
}

func record(s workbook.Sheet, h *HeaderMap, r int) models.Record {
	rec := make(models.Record, len(h.index))
	for label, c := range h.index {
		rec[label] = CellToString(s.Cell(r, c))
	}
	return rec
}

// findRow returns the first data row whose key column equals keyValue.
func findRow(s workbook.Sheet, h *HeaderMap, keyLabel, keyValue string) (int, bool) {
	kc, ok := h.Index(keyLabel)
	if !ok {
		return 0, false
	}
	last := s.LastRow()
	for r := 1; r <= last; r++ {
		if !s.HasRow(r) {
			continue
		}
		if CellToString(s.Cell(r, kc)) == keyValue {
			return r, true
		}
	}
	return 0, false
}

// FindByKey returns the record of the first data row whose keyLabel column
// equals keyValue. It returns false when keyLabel is not a header or no row
// matches.
func FindByKey(s workbook.Sheet, h *HeaderMap, keyLabel, keyValue string) (models.Record, bool) {
	r, ok := findRow(s, h, keyLabel, keyValue)
	if !ok {
		return nil, false
	}
	return record(s, h, r), true
}

// UpdateCell writes value as text into the targetLabel column of the row
// keyed by keyValue. An unknown targetLabel is appended to row 0 as a new
// column and h is rebuilt. It returns false, leaving the sheet untouched,
// when keyLabel is not a header, targetLabel is blank or no row matches.
// The error reports backend write failures.
func UpdateCell(s workbook.Sheet, h *HeaderMap, keyLabel, keyValue, targetLabel, value string) (bool, error) {
	targetLabel = strings.TrimSpace(targetLabel)
	if targetLabel == "" {
		return false, nil
	}
	r, ok := findRow(s, h, keyLabel, keyValue)
	if !ok {
		return false, nil
	}
	c, ok := h.Index(targetLabel)
	if !ok {
		c = s.RowWidth(0)
		if err := s.SetText(0, c, targetLabel); err != nil {
			return false, fmt.Errorf("append column %q: %w", targetLabel, err)
		}
		h.rebuild(s)
	}
	if err := s.SetText(r, c, value); err != nil {
		return false, fmt.Errorf("write %q of row %d: %w", targetLabel, r, err)
	}
	return true, nil
}
