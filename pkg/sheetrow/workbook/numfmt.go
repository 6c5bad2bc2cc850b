package workbook

import (
	"strings"

	"github.com/xuri/nfp"
)

// isBuiltInDateID reports whether a built-in number format id is a date,
// time or datetime format.
func isBuiltInDateID(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// IsDateFormat reports whether a number format renders numbers as dates.
// Custom format codes are tokenised and checked for date or elapsed time
// tokens in any section; quoted literals and colours do not count.
func IsDateFormat(id int, code string) bool {
	if isBuiltInDateID(id) {
		return true
	}
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "General") {
		return false
	}
	ps := nfp.NumberFormatParser()
	for _, sec := range ps.Parse(code) {
		for _, tok := range sec.Items {
			switch tok.TType {
			case nfp.TokenTypeDateTimes, nfp.TokenTypeElapsedDateTimes:
				return true
			}
		}
	}
	return false
}
