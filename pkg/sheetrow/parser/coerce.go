// Package parser maps worksheet rows to label-keyed records: cell coercion,
// the header map built from row 0, and the key-based row codec.
package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/workbook"
	"github.com/xuri/excelize/v2"
)

// FormulaError replaces the value of a formula that cannot be evaluated.
const FormulaError = "FORMULA_ERROR"

// DateLayout renders date-formatted numbers.
const DateLayout = "2006-01-02T15:04:05"

// CellToString converts a cell to its canonical string. It never fails:
// formula evaluation errors and error-valued results become FormulaError.
func CellToString(c workbook.Cell) string {
	if c.Kind == workbook.KindFormula {
		v, err := c.Evaluate()
		if err != nil || v.Kind == workbook.KindError || v.Kind == workbook.KindFormula {
			return FormulaError
		}
		if v.Kind == workbook.KindNumber && c.Date {
			v.Date, v.Date1904 = true, c.Date1904
		}
		c = v
	}
	return strings.TrimSpace(valueString(c))
}

func valueString(c workbook.Cell) string {
	switch c.Kind {
	case workbook.KindText, workbook.KindError:
		return c.Text
	case workbook.KindNumber:
		if c.Date {
			if t, err := excelize.ExcelDateToTime(c.Number, c.Date1904); err == nil {
				return t.Format(DateLayout)
			}
		}
		return numberString(c.Number)
	case workbook.KindBoolean:
		return strconv.FormatBool(c.Bool)
	}
	return ""
}

// numberString renders whole numbers as integers and everything else as the
// shortest decimal that round-trips.
func numberString(v float64) string {
	if v == 0 {
		return "0"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
