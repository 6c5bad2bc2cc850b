package parser

import "github.com/ukaji3/sheetrow-go/pkg/sheetrow/workbook"

// HeaderMap maps header labels of row 0 to column indexes.
type HeaderMap struct {
	index map[string]int
	// labels in column order, one entry per mapped column.
	labels []string
	dups   []string
}

// BuildHeaderMap reads row 0 of s. It returns false when row 0 is absent.
// Blank header cells are skipped; when a label repeats, the later column
// wins and the label is reported by Duplicates.
func BuildHeaderMap(s workbook.Sheet) (*HeaderMap, bool) {
	h := &HeaderMap{}
	if !h.rebuild(s) {
		return nil, false
	}
	return h, true
}

func (h *HeaderMap) rebuild(s workbook.Sheet) bool {
	if !s.HasRow(0) {
		return false
	}
	h.index = make(map[string]int)
	h.labels, h.dups = nil, nil
	width := s.RowWidth(0)
	for c := 0; c < width; c++ {
		label := CellToString(s.Cell(0, c))
		if label == "" {
			continue
		}
		if _, ok := h.index[label]; ok {
			h.dups = append(h.dups, label)
		}
		h.index[label] = c
	}
	for c := 0; c < width; c++ {
		if label := CellToString(s.Cell(0, c)); label != "" && h.index[label] == c {
			h.labels = append(h.labels, label)
		}
	}
	return true
}

// Index returns the column of label.
func (h *HeaderMap) Index(label string) (int, bool) {
	c, ok := h.index[label]
	return c, ok
}

// Labels returns the mapped labels in column order.
func (h *HeaderMap) Labels() []string {
	return append([]string(nil), h.labels...)
}

// Duplicates returns labels that appeared more than once in row 0.
func (h *HeaderMap) Duplicates() []string {
	return append([]string(nil), h.dups...)
}

// Len returns the number of mapped labels.
func (h *HeaderMap) Len() int {
	return len(h.index)
}
