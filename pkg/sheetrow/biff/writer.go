package biff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"unicode/utf16"
)

// minWorkbookStream is the size Excel pads the workbook stream to, which also
// keeps it out of the compound file's mini stream.
const minWorkbookStream = 4096

// Write serialises the workbook as a BIFF8 compound file.
func (wb *Workbook) Write(w io.Writer) error {
	stream, err := wb.workbookStream()
	if err != nil {
		return err
	}
	streams := []cfbStream{{name: "Workbook", data: stream}}
	names := make([]string, 0, len(wb.streams))
	for name := range wb.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		streams = append(streams, cfbStream{name: name, data: wb.streams[name]})
	}
	return writeCompoundFile(w, streams)
}

// recWriter accumulates BIFF records.
type recWriter struct {
	bytes.Buffer
}

func (w *recWriter) record(op uint16, data []byte) {
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[:], op)
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(data)))
	w.Write(hdr[:])
	w.Write(data)
}

// payload is a little-endian record body builder.
type payload []byte

func (p payload) u8(v byte) payload     { return append(p, v) }
func (p payload) u16(v uint16) payload  { return binary.LittleEndian.AppendUint16(p, v) }
func (p payload) u32(v uint32) payload  { return binary.LittleEndian.AppendUint32(p, v) }
func (p payload) f64(v float64) payload { return binary.LittleEndian.AppendUint64(p, math.Float64bits(v)) }

// shortString appends a ShortXLUnicodeString in UTF-16LE, truncated to 255
// characters.
func (p payload) shortString(s string) payload {
	units := utf16.Encode([]rune(s))
	if len(units) > 255 {
		units = units[:255]
	}
	p = p.u8(byte(len(units))).u8(0x01)
	for _, u := range units {
		p = p.u16(u)
	}
	return p
}

// continuedWriter splits data over a record and its CONTINUE records. String
// character data split across records repeats the option byte.
type continuedWriter struct {
	op     uint16
	chunks []payload
}

func newContinuedWriter(op uint16, head payload) *continuedWriter {
	return &continuedWriter{op: op, chunks: []payload{head}}
}

func (c *continuedWriter) cur() *payload {
	return &c.chunks[len(c.chunks)-1]
}

func (c *continuedWriter) room() int {
	return maxRecordData - len(*c.cur())
}

func (c *continuedWriter) newChunk() {
	c.chunks = append(c.chunks, payload{})
}

// unicodeString appends an uncompressed XLUnicodeString. It returns the index
// of the chunk and the offset within it where the string header starts.
func (c *continuedWriter) unicodeString(s string) (chunk, offset int) {
	units := utf16.Encode([]rune(s))
	if len(units) > 32767 {
		units = units[:32767]
	}
	// The 3-byte header and the first character stay together.
	if c.room() < 5 {
		c.newChunk()
	}
	chunk, offset = len(c.chunks)-1, len(*c.cur())
	*c.cur() = c.cur().u16(uint16(len(units))).u8(0x01)
	for len(units) > 0 {
		if c.room() < 2 {
			c.newChunk()
			*c.cur() = c.cur().u8(0x01)
		}
		n := min(c.room()/2, len(units))
		for _, u := range units[:n] {
			*c.cur() = c.cur().u16(u)
		}
		units = units[n:]
	}
	return chunk, offset
}

func (c *continuedWriter) flush(w *recWriter) {
	for i, chunk := range c.chunks {
		op := c.op
		if i > 0 {
			op = recContinue
		}
		w.record(op, chunk)
	}
}

// sstBuilder collects unique strings in first-use order.
type sstBuilder struct {
	index map[string]uint32
	strs  []string
	total uint32
}

func (b *sstBuilder) add(s string) uint32 {
	b.total++
	if i, ok := b.index[s]; ok {
		return i
	}
	i := uint32(len(b.strs))
	b.index[s] = i
	b.strs = append(b.strs, s)
	return i
}

// xfTable assigns cell XF indexes to number formats. XFs 0-14 are style XFs
// and 15 is the default cell XF.
type xfTable struct {
	byFmt map[uint16]uint16
	fmts  []uint16
}

func newXFTable() *xfTable {
	return &xfTable{byFmt: map[uint16]uint16{0: 15}, fmts: []uint16{0}}
}

func (t *xfTable) index(numFmt uint16) uint16 {
	if i, ok := t.byFmt[numFmt]; ok {
		return i
	}
	i := uint16(15 + len(t.fmts))
	t.byFmt[numFmt] = i
	t.fmts = append(t.fmts, numFmt)
	return i
}

func (wb *Workbook) workbookStream() ([]byte, error) {
	sst := &sstBuilder{index: make(map[string]uint32)}
	xfs := newXFTable()

	sheets := make([][]byte, len(wb.Sheets))
	for i, s := range wb.Sheets {
		data, err := sheetStream(s, i == 0, sst, xfs)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		sheets[i] = data
	}

	// BOUNDSHEET offsets depend on the globals size, which does not depend on
	// the offsets themselves, so the globals are built twice.
	offsets := make([]uint32, len(wb.Sheets))
	globals := wb.globalsStream(offsets, sst, xfs)
	pos := uint32(len(globals))
	for i, data := range sheets {
		offsets[i] = pos
		pos += uint32(len(data))
	}
	globals = wb.globalsStream(offsets, sst, xfs)

	out := bytes.NewBuffer(globals)
	for _, data := range sheets {
		out.Write(data)
	}
	if out.Len() < minWorkbookStream {
		out.Write(make([]byte, minWorkbookStream-out.Len()))
	}
	return out.Bytes(), nil
}

func bof(kind uint16) payload {
	return payload{}.u16(biff8Version).u16(kind).u16(0x0DBB).u16(0x07CC).u32(0).u32(0x06)
}

var (
	styleXF = []byte{0x00, 0x00, 0x00, 0x00, 0xF5, 0xFF, 0x20, 0x00, 0x00, 0xF4,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x20}
	cellXF = []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x20}
)

func (wb *Workbook) globalsStream(offsets []uint32, sst *sstBuilder, xfs *xfTable) []byte {
	w := &recWriter{}
	w.record(recBOF, bof(bofGlobals))
	w.record(recCodepage, payload{}.u16(1200))
	w.record(recWindow1, payload{}.
		u16(0).u16(0).u16(0x4000).u16(0x2000).u16(0x0038).
		u16(0).u16(0).u16(1).u16(0x0258))
	var mode uint16
	if wb.Date1904 {
		mode = 1
	}
	w.record(recDateMode, payload{}.u16(mode))

	// Font index 4 does not exist in BIFF, so five records yield indexes 0-5.
	for range 5 {
		w.record(recFont, payload{}.
			u16(200).u16(0).u16(0x7FFF).u16(400).u16(0).
			u8(0).u8(0).u8(0).u8(0).shortString("Arial"))
	}

	ids := make([]int, 0, len(wb.Formats))
	for id := range wb.Formats {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		cw := newContinuedWriter(recFormat, payload{}.u16(uint16(id)))
		cw.unicodeString(wb.Formats[uint16(id)])
		cw.flush(w)
	}

	for range 15 {
		w.record(recXF, styleXF)
	}
	for _, numFmt := range xfs.fmts {
		xf := append(payload{}, cellXF...)
		binary.LittleEndian.PutUint16(xf[2:], numFmt)
		if numFmt != 0 {
			xf[9] = 0x04
		}
		w.record(recXF, xf)
	}
	w.record(recStyle, payload{}.u16(0x8000).u8(0).u8(0xFF))

	for i, s := range wb.Sheets {
		w.record(recBoundSheet, payload{}.u32(offsets[i]).u8(s.Visibility).u8(0).shortString(s.Name))
	}

	writeSST(w, sst)
	w.record(recEOF, nil)
	return w.Bytes()
}

// writeSST emits SST, its CONTINUE records and the EXTSST index. Bucket
// offsets in EXTSST are absolute stream positions, which works because the
// globals are the first substream.
func writeSST(w *recWriter, sst *sstBuilder) {
	// EXTSST must fit one record: at most 1024 buckets.
	bucket := max(8, (len(sst.strs)+1023)/1024)
	cw := newContinuedWriter(recSST, payload{}.u32(sst.total).u32(uint32(len(sst.strs))))
	type mark struct{ chunk, offset int }
	var marks []mark
	for i, s := range sst.strs {
		chunk, offset := cw.unicodeString(s)
		if i%bucket == 0 {
			marks = append(marks, mark{chunk, offset})
		}
	}

	base := w.Len()
	starts := make([]int, len(cw.chunks))
	pos := base
	for i, chunk := range cw.chunks {
		starts[i] = pos
		pos += 4 + len(chunk)
	}
	cw.flush(w)

	ext := payload{}.u16(uint16(bucket))
	for _, m := range marks {
		ext = ext.u32(uint32(starts[m.chunk] + 4 + m.offset)).u16(uint16(4 + m.offset)).u16(0)
	}
	w.record(recExtSST, ext)
}

func sheetStream(s *Sheet, first bool, sst *sstBuilder, xfs *xfTable) ([]byte, error) {
	w := &recWriter{}
	w.record(recBOF, bof(bofWorksheet))

	rows := s.rowIndexes()
	var rowMin, rowMax, colMin, colMax int
	if len(rows) > 0 {
		rowMin, rowMax = rows[0], rows[len(rows)-1]+1
		colMin = MaxCols
		for _, r := range rows {
			cols := s.rows[r].columns()
			if len(cols) == 0 {
				continue
			}
			colMin = min(colMin, cols[0])
			colMax = max(colMax, cols[len(cols)-1]+1)
		}
		if colMin == MaxCols {
			colMin = 0
		}
	}
	w.record(recDimensions, payload{}.u32(uint32(rowMin)).u32(uint32(rowMax)).
		u16(uint16(colMin)).u16(uint16(colMax)).u16(0))

	for _, r := range rows {
		cols := s.rows[r].columns()
		colFirst, colLast := 0, 0
		if len(cols) > 0 {
			colFirst, colLast = cols[0], cols[len(cols)-1]+1
		}
		w.record(recRow, payload{}.u16(uint16(r)).u16(uint16(colFirst)).u16(uint16(colLast)).
			u16(0x00FF).u16(0).u16(0).u32(0x000F0100))
	}

	for _, r := range rows {
		row := s.rows[r]
		for _, c := range row.columns() {
			if err := writeCell(w, r, c, row.cells[c], sst, xfs); err != nil {
				return nil, err
			}
		}
	}

	grbit := uint16(0x00B6)
	if first {
		grbit |= 0x0600
	}
	w.record(recWindow2, payload{}.u16(grbit).u16(0).u16(0).u16(0x40).u16(0).
		u16(0).u16(0).u32(0))
	w.record(recEOF, nil)
	return w.Bytes(), nil
}

func writeCell(w *recWriter, r, c int, cell Cell, sst *sstBuilder, xfs *xfTable) error {
	head := payload{}.u16(uint16(r)).u16(uint16(c)).u16(xfs.index(cell.NumFmt))
	switch cell.Type {
	case CellBlank:
		w.record(recBlank, head)
	case CellLabel:
		w.record(recLabelSST, head.u32(sst.add(cell.Str)))
	case CellNumber:
		w.record(recNumber, head.f64(cell.Num))
	case CellBool:
		w.record(recBoolErr, head.u8(boolByte(cell.Bool)).u8(0))
	case CellError:
		w.record(recBoolErr, head.u8(cell.Err).u8(1))
	case CellFormula:
		writeFormula(w, head, cell)
	default:
		return fmt.Errorf("biff: unknown cell type %d at (%d, %d)", cell.Type, r, c)
	}
	return nil
}

// writeFormula stores a formula cell as a constant formula that reproduces its
// cached result; the formula expression is not retained.
func writeFormula(w *recWriter, head payload, cell Cell) {
	var result, rgce payload
	switch cell.Result {
	case CellNumber:
		result = payload{}.f64(cell.Num)
		rgce = payload{}.u8(0x1F).f64(cell.Num)
	case CellLabel:
		result = payload{0x00, 0, 0, 0, 0, 0, 0xFF, 0xFF}
		rgce = payload{}.u8(0x17).shortString(cell.Str)
	case CellBool:
		result = payload{0x01, 0, boolByte(cell.Bool), 0, 0, 0, 0xFF, 0xFF}
		rgce = payload{}.u8(0x1D).u8(boolByte(cell.Bool))
	case CellError:
		result = payload{0x02, 0, cell.Err, 0, 0, 0, 0xFF, 0xFF}
		rgce = payload{}.u8(0x1C).u8(cell.Err)
	default:
		result = payload{0x03, 0, 0, 0, 0, 0, 0xFF, 0xFF}
		rgce = payload{}.u8(0x17).shortString("")
	}
	body := append(head, result...)
	body = body.u16(0).u32(0).u16(uint16(len(rgce)))
	w.record(recFormula, append(body, rgce...))
	if cell.Result == CellLabel {
		cw := newContinuedWriter(recString, payload{})
		cw.unicodeString(cell.Str)
		cw.flush(w)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
