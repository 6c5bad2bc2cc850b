package biff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var cfbSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Open reads a legacy workbook from r. The whole input is buffered because the
// compound file format needs random access.
func Open(r io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a legacy workbook held in memory.
func Parse(data []byte) (*Workbook, error) {
	if !bytes.HasPrefix(data, cfbSignature) {
		return nil, ErrNotCompoundFile
	}
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("biff: open compound file: %w", err)
	}

	wb := NewWorkbook()
	var book, fallback []byte
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("biff: read compound directory: %w", err)
		}
		if len(entry.Path) > 0 {
			continue
		}
		name := entry.Name
		if entry.Initial < 0x20 && !strings.HasPrefix(name, string(rune(entry.Initial))) {
			name = string(rune(entry.Initial)) + name
		}
		switch {
		case name == "Workbook":
			if book, err = readEntry(entry); err != nil {
				return nil, err
			}
		case name == "Book":
			if fallback, err = readEntry(entry); err != nil {
				return nil, err
			}
		case entry.Initial < 0x20:
			// Property sets and other reserved streams are carried through.
			raw, err := readEntry(entry)
			if err != nil {
				return nil, err
			}
			wb.streams[name] = raw
		}
	}
	if book == nil {
		book = fallback
	}
	if book == nil {
		return nil, ErrNoWorkbookStream
	}
	if err := parseWorkbookStream(book, wb); err != nil {
		return nil, err
	}
	return wb, nil
}

func readEntry(f *mscfb.File) ([]byte, error) {
	buf := make([]byte, f.Size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("biff: read stream %q: %w", f.Name, err)
	}
	return buf, nil
}

// record is one BIFF record together with the payloads of any CONTINUE
// records that immediately follow it.
type record struct {
	op     uint16
	chunks [][]byte
}

func (r record) data() []byte {
	return r.chunks[0]
}

type recordReader struct {
	data []byte
	pos  int
}

func (r *recordReader) next() (record, error) {
	rec, err := r.read()
	if err != nil {
		return rec, err
	}
	for rec.op != recContinue && r.peek() == recContinue {
		cont, err := r.read()
		if err != nil {
			return rec, err
		}
		rec.chunks = append(rec.chunks, cont.chunks[0])
	}
	return rec, nil
}

func (r *recordReader) peek() int {
	if r.pos+4 > len(r.data) {
		return -1
	}
	return int(binary.LittleEndian.Uint16(r.data[r.pos:]))
}

func (r *recordReader) read() (record, error) {
	if r.pos == len(r.data) {
		return record{}, io.EOF
	}
	if r.pos+4 > len(r.data) {
		return record{}, fmt.Errorf("%w: truncated record header at %d", ErrCorrupt, r.pos)
	}
	op := binary.LittleEndian.Uint16(r.data[r.pos:])
	n := int(binary.LittleEndian.Uint16(r.data[r.pos+2:]))
	start := r.pos + 4
	if start+n > len(r.data) {
		return record{}, fmt.Errorf("%w: record 0x%04X at %d overruns stream", ErrCorrupt, op, r.pos)
	}
	r.pos = start + n
	return record{op: op, chunks: [][]byte{r.data[start : start+n]}}, nil
}

// chunkReader reads across the CONTINUE boundaries of a record. String
// character data that crosses a boundary is preceded by a fresh option byte.
type chunkReader struct {
	chunks [][]byte
	ci     int
	pos    int
}

func newChunkReader(rec record, skip int) *chunkReader {
	return &chunkReader{chunks: rec.chunks, pos: skip}
}

func (c *chunkReader) avail() int {
	return len(c.chunks[c.ci]) - c.pos
}

func (c *chunkReader) advance() bool {
	if c.ci+1 >= len(c.chunks) {
		return false
	}
	c.ci++
	c.pos = 0
	return true
}

func (c *chunkReader) bytes(n int) ([]byte, error) {
	if c.avail() >= n {
		b := c.chunks[c.ci][c.pos : c.pos+n]
		c.pos += n
		return b, nil
	}
	out := make([]byte, 0, n)
	for len(out) < n {
		if c.avail() == 0 && !c.advance() {
			return nil, fmt.Errorf("%w: string data truncated", ErrCorrupt)
		}
		take := min(n-len(out), c.avail())
		out = append(out, c.chunks[c.ci][c.pos:c.pos+take]...)
		c.pos += take
	}
	return out, nil
}

func (c *chunkReader) skip(n int) error {
	_, err := c.bytes(n)
	return err
}

func (c *chunkReader) u8() (byte, error) {
	b, err := c.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *chunkReader) u16() (int, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(b)), nil
}

func (c *chunkReader) u32() (int, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

// unicodeString reads an XLUnicodeRichExtendedString whose character count is
// stored in lenBytes bytes (1 for ShortXLUnicodeString, 2 otherwise).
func (c *chunkReader) unicodeString(lenBytes int) (string, error) {
	var cch int
	var err error
	if lenBytes == 1 {
		var b byte
		b, err = c.u8()
		cch = int(b)
	} else {
		cch, err = c.u16()
	}
	if err != nil {
		return "", err
	}
	flags, err := c.u8()
	if err != nil {
		return "", err
	}
	runs, ext := 0, 0
	if flags&0x08 != 0 {
		if runs, err = c.u16(); err != nil {
			return "", err
		}
	}
	if flags&0x04 != 0 {
		if ext, err = c.u32(); err != nil {
			return "", err
		}
	}
	s, err := c.chars(cch, flags&0x01 != 0)
	if err != nil {
		return "", err
	}
	if err := c.skip(runs*4 + ext); err != nil {
		return "", err
	}
	return s, nil
}

func (c *chunkReader) chars(cch int, high bool) (string, error) {
	var sb strings.Builder
	for cch > 0 {
		if c.avail() == 0 {
			if !c.advance() {
				return "", fmt.Errorf("%w: string characters truncated", ErrCorrupt)
			}
			flag, err := c.u8()
			if err != nil {
				return "", err
			}
			high = flag&0x01 != 0
		}
		width := 1
		if high {
			width = 2
		}
		n := min(c.avail()/width, cch)
		if n == 0 {
			return "", fmt.Errorf("%w: split character", ErrCorrupt)
		}
		raw := c.chunks[c.ci][c.pos : c.pos+n*width]
		c.pos += n * width
		s, err := decodeChars(raw, high)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
		cch -= n
	}
	return sb.String(), nil
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeChars decodes BIFF8 character data: UTF-16LE when high is set,
// otherwise the "compressed" form holding only the low byte of each unit.
func decodeChars(raw []byte, high bool) (string, error) {
	var (
		out []byte
		err error
	)
	if high {
		out, err = utf16le.NewDecoder().Bytes(raw)
	} else {
		out, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
	}
	if err != nil {
		return "", fmt.Errorf("biff: decode string: %w", err)
	}
	return string(out), nil
}

type boundSheet struct {
	offset     int
	visibility byte
	kind       byte
	name       string
}

func parseWorkbookStream(data []byte, wb *Workbook) error {
	rr := &recordReader{data: data}
	if err := expectBOF(rr, bofGlobals); err != nil {
		return err
	}

	var (
		xfs    []uint16
		sst    []string
		sheets []boundSheet
	)
	for {
		rec, err := rr.next()
		if err == io.EOF {
			return fmt.Errorf("%w: missing globals EOF", ErrCorrupt)
		}
		if err != nil {
			return err
		}
		d := rec.data()
		switch rec.op {
		case recFilePass:
			return ErrEncrypted
		case recDateMode:
			if len(d) >= 2 {
				wb.Date1904 = binary.LittleEndian.Uint16(d) == 1
			}
		case recFormat:
			if len(d) < 2 {
				return fmt.Errorf("%w: short FORMAT record", ErrCorrupt)
			}
			code, err := newChunkReader(rec, 2).unicodeString(2)
			if err != nil {
				return err
			}
			wb.Formats[binary.LittleEndian.Uint16(d)] = code
		case recXF:
			if len(d) < 4 {
				return fmt.Errorf("%w: short XF record", ErrCorrupt)
			}
			xfs = append(xfs, binary.LittleEndian.Uint16(d[2:]))
		case recBoundSheet:
			if len(d) < 8 {
				return fmt.Errorf("%w: short BOUNDSHEET record", ErrCorrupt)
			}
			name, err := newChunkReader(rec, 6).unicodeString(1)
			if err != nil {
				return err
			}
			sheets = append(sheets, boundSheet{
				offset:     int(binary.LittleEndian.Uint32(d)),
				visibility: d[4] & 0x03,
				kind:       d[5],
				name:       name,
			})
		case recSST:
			if sst, err = parseSST(rec); err != nil {
				return err
			}
		case recEOF:
			for _, bs := range sheets {
				if bs.kind != 0 {
					continue
				}
				s := wb.AddSheet(bs.name)
				s.Visibility = bs.visibility
				if err := parseSheet(data, bs.offset, s, xfs, sst); err != nil {
					return fmt.Errorf("sheet %q: %w", bs.name, err)
				}
			}
			return nil
		}
	}
}

func expectBOF(rr *recordReader, kind uint16) error {
	rec, err := rr.next()
	if err != nil {
		return fmt.Errorf("%w: missing BOF", ErrCorrupt)
	}
	switch rec.op {
	case recBOF:
	case 0x0009, 0x0209, 0x0409:
		return ErrUnsupportedVersion
	default:
		return fmt.Errorf("%w: expected BOF, found 0x%04X", ErrCorrupt, rec.op)
	}
	d := rec.data()
	if len(d) < 4 {
		return fmt.Errorf("%w: short BOF record", ErrCorrupt)
	}
	if binary.LittleEndian.Uint16(d) != biff8Version {
		return ErrUnsupportedVersion
	}
	if got := binary.LittleEndian.Uint16(d[2:]); got != kind {
		return fmt.Errorf("%w: BOF substream type 0x%04X, want 0x%04X", ErrCorrupt, got, kind)
	}
	return nil
}

func parseSST(rec record) ([]string, error) {
	if len(rec.data()) < 8 {
		return nil, fmt.Errorf("%w: short SST record", ErrCorrupt)
	}
	unique := int(binary.LittleEndian.Uint32(rec.data()[4:]))
	cr := newChunkReader(rec, 8)
	strs := make([]string, 0, unique)
	for range unique {
		s, err := cr.unicodeString(2)
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}

func parseSheet(data []byte, offset int, s *Sheet, xfs []uint16, sst []string) error {
	if offset < 0 || offset >= len(data) {
		return fmt.Errorf("%w: sheet offset %d outside stream", ErrCorrupt, offset)
	}
	rr := &recordReader{data: data, pos: offset}
	if err := expectBOF(rr, bofWorksheet); err != nil {
		return err
	}
	numFmt := func(ixfe uint16) uint16 {
		if int(ixfe) < len(xfs) {
			return xfs[ixfe]
		}
		return 0
	}

	// pending is the formula cell waiting for its STRING result record.
	var pending *struct {
		row, col int
		cell     Cell
	}

	for {
		rec, err := rr.next()
		if err == io.EOF {
			return fmt.Errorf("%w: missing sheet EOF", ErrCorrupt)
		}
		if err != nil {
			return err
		}
		d := rec.data()
		if rec.op != recString && pending != nil {
			// The STRING record never came; keep the formula with an empty result.
			if err := s.SetCell(pending.row, pending.col, pending.cell); err != nil {
				return err
			}
			pending = nil
		}

		switch rec.op {
		case recEOF:
			return nil
		case recRow:
			if len(d) < 2 {
				return fmt.Errorf("%w: short ROW record", ErrCorrupt)
			}
			if _, err := s.AddRow(int(binary.LittleEndian.Uint16(d))); err != nil {
				return err
			}
		case recLabelSST:
			if len(d) < 10 {
				return fmt.Errorf("%w: short LABELSST record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			isst := int(binary.LittleEndian.Uint32(d[6:]))
			if isst >= len(sst) {
				return fmt.Errorf("%w: SST index %d out of range", ErrCorrupt, isst)
			}
			err = s.SetCell(r, c, Cell{Type: CellLabel, Str: sst[isst], NumFmt: numFmt(ixfe)})
		case recLabel, recRString:
			if len(d) < 9 {
				return fmt.Errorf("%w: short LABEL record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			str, serr := newChunkReader(rec, 6).unicodeString(2)
			if serr != nil {
				return serr
			}
			err = s.SetCell(r, c, Cell{Type: CellLabel, Str: str, NumFmt: numFmt(ixfe)})
		case recNumber:
			if len(d) < 14 {
				return fmt.Errorf("%w: short NUMBER record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			v := math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))
			err = s.SetCell(r, c, Cell{Type: CellNumber, Num: v, NumFmt: numFmt(ixfe)})
		case recRK:
			if len(d) < 10 {
				return fmt.Errorf("%w: short RK record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			v := rkValue(binary.LittleEndian.Uint32(d[6:]))
			err = s.SetCell(r, c, Cell{Type: CellNumber, Num: v, NumFmt: numFmt(ixfe)})
		case recMulRK:
			if len(d) < 6 || (len(d)-6)%6 != 0 {
				return fmt.Errorf("%w: malformed MULRK record", ErrCorrupt)
			}
			r := int(binary.LittleEndian.Uint16(d))
			first := int(binary.LittleEndian.Uint16(d[2:]))
			for i := 0; i < (len(d)-6)/6 && err == nil; i++ {
				p := d[4+i*6:]
				ixfe := binary.LittleEndian.Uint16(p)
				v := rkValue(binary.LittleEndian.Uint32(p[2:]))
				err = s.SetCell(r, first+i, Cell{Type: CellNumber, Num: v, NumFmt: numFmt(ixfe)})
			}
		case recBoolErr:
			if len(d) < 8 {
				return fmt.Errorf("%w: short BOOLERR record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			cell := Cell{Type: CellBool, Bool: d[6] != 0, NumFmt: numFmt(ixfe)}
			if d[7] != 0 {
				cell = Cell{Type: CellError, Err: d[6], NumFmt: numFmt(ixfe)}
			}
			err = s.SetCell(r, c, cell)
		case recFormula:
			if len(d) < 20 {
				return fmt.Errorf("%w: short FORMULA record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			cell := formulaResult(d[6:14])
			cell.NumFmt = numFmt(ixfe)
			if cell.Result == CellLabel {
				pending = &struct {
					row, col int
					cell     Cell
				}{r, c, cell}
				continue
			}
			err = s.SetCell(r, c, cell)
		case recString:
			if pending == nil {
				continue
			}
			str, serr := newChunkReader(rec, 0).unicodeString(2)
			if serr != nil {
				return serr
			}
			pending.cell.Str = str
			err = s.SetCell(pending.row, pending.col, pending.cell)
			pending = nil
		case recBlank:
			if len(d) < 6 {
				return fmt.Errorf("%w: short BLANK record", ErrCorrupt)
			}
			r, c, ixfe := cellHeader(d)
			err = s.SetCell(r, c, Cell{Type: CellBlank, NumFmt: numFmt(ixfe)})
		case recMulBlank:
			if len(d) < 6 || (len(d)-6)%2 != 0 {
				return fmt.Errorf("%w: malformed MULBLANK record", ErrCorrupt)
			}
			r := int(binary.LittleEndian.Uint16(d))
			first := int(binary.LittleEndian.Uint16(d[2:]))
			for i := 0; i < (len(d)-6)/2 && err == nil; i++ {
				ixfe := binary.LittleEndian.Uint16(d[4+i*2:])
				err = s.SetCell(r, first+i, Cell{Type: CellBlank, NumFmt: numFmt(ixfe)})
			}
		}
		if err != nil {
			return err
		}
	}
}

func cellHeader(d []byte) (row, col int, ixfe uint16) {
	return int(binary.LittleEndian.Uint16(d)),
		int(binary.LittleEndian.Uint16(d[2:])),
		binary.LittleEndian.Uint16(d[4:])
}

// rkValue decodes an RK number: a 30-bit integer or the top 30 bits of an
// IEEE double, optionally scaled by 1/100.
func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

// formulaResult decodes the 8-byte cached result of a FORMULA record.
func formulaResult(b []byte) Cell {
	cell := Cell{Type: CellFormula}
	if b[6] != 0xFF || b[7] != 0xFF {
		cell.Result = CellNumber
		cell.Num = math.Float64frombits(binary.LittleEndian.Uint64(b))
		return cell
	}
	switch b[0] {
	case 0x00:
		cell.Result = CellLabel
	case 0x01:
		cell.Result = CellBool
		cell.Bool = b[2] != 0
	case 0x02:
		cell.Result = CellError
		cell.Err = b[2]
	default:
		cell.Result = CellBlank
	}
	return cell
}
