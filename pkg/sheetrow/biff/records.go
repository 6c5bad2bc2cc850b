// Package biff reads and writes legacy Excel 97-2003 workbooks: BIFF8 record
// streams stored in an OLE2 compound file.
//
// Only the parts of the format that carry cell data survive a read/write cycle:
// sheet names and visibility, cell values, number formats, the 1904 date flag
// and any root-level property-set streams. Charts, drawings, macros and other
// styling are dropped on write.
package biff

import "errors"

// BIFF8 record identifiers.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recFilePass   = 0x002F
	recContinue   = 0x003C
	recWindow1    = 0x003D
	recCodepage   = 0x0042
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recMulBlank   = 0x00BE
	recRString    = 0x00D6
	recXF         = 0x00E0
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recExtSST     = 0x00FF
	recDimensions = 0x0200
	recBlank      = 0x0201
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRow        = 0x0208
	recWindow2    = 0x023E
	recRK         = 0x027E
	recStyle      = 0x0293
	recFont       = 0x0031
	recFormat     = 0x041E
	recBOF        = 0x0809
)

const (
	biff8Version = 0x0600

	bofGlobals   = 0x0005
	bofWorksheet = 0x0010

	// maxRecordData is the largest payload a single BIFF8 record may carry.
	maxRecordData = 8224

	// MaxRows and MaxCols are the BIFF8 sheet limits.
	MaxRows = 65536
	MaxCols = 256
)

var (
	// ErrNotCompoundFile is returned when the input does not start with the
	// OLE2 compound file signature.
	ErrNotCompoundFile = errors.New("biff: not an OLE2 compound file")

	// ErrNoWorkbookStream is returned when the compound file has neither a
	// "Workbook" nor a "Book" stream.
	ErrNoWorkbookStream = errors.New("biff: no Workbook or Book stream found")

	// ErrEncrypted is returned for password-protected workbooks.
	ErrEncrypted = errors.New("biff: workbook is encrypted")

	// ErrUnsupportedVersion is returned for BIFF versions other than BIFF8.
	ErrUnsupportedVersion = errors.New("biff: only BIFF8 (Excel 97-2003) workbooks are supported")

	// ErrCorrupt is returned when the record stream is truncated or inconsistent.
	ErrCorrupt = errors.New("biff: corrupt record stream")

	// ErrOutOfRange is returned when a cell address exceeds the BIFF8 limits.
	ErrOutOfRange = errors.New("biff: cell address out of range")
)

// ErrorText maps BIFF error codes to their Excel literals.
var ErrorText = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

// ErrorCode returns the BIFF error code for an Excel error literal.
func ErrorCode(text string) (byte, bool) {
	for code, t := range ErrorText {
		if t == text {
			return code, true
		}
	}
	return 0, false
}
