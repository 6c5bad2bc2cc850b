package biff

import (
	"errors"
	"io"
	"sort"
	"strings"
	"unicode/utf16"
)

// Compound file constants for major version 3 (512-byte sectors).
const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096
	dirEntrySize   = 128
	headerDIFAT    = 109

	secFree       = 0xFFFFFFFF
	secEndOfChain = 0xFFFFFFFE
	secFAT        = 0xFFFFFFFD
	noStream      = 0xFFFFFFFF

	entryStream = 2
	entryRoot   = 5
	colorBlack  = 1
)

// errTooLarge is returned when the file would need DIFAT sectors.
var errTooLarge = errors.New("biff: workbook too large for compound file writer")

type cfbStream struct {
	name string
	data []byte
}

// allocator hands out consecutive sectors and records their FAT chains.
type allocator struct {
	fat  []uint32
	next uint32
}

func (a *allocator) chain(sectors int) uint32 {
	if sectors == 0 {
		return secEndOfChain
	}
	start := a.next
	for i := range sectors {
		if i == sectors-1 {
			a.fat = append(a.fat, secEndOfChain)
		} else {
			a.fat = append(a.fat, a.next+1)
		}
		a.next++
	}
	return start
}

func sectorsFor(n, size int) int {
	return (n + size - 1) / size
}

// writeCompoundFile writes streams as root-level entries of a compound file.
// Streams smaller than the mini stream cutoff are packed into the mini stream.
func writeCompoundFile(w io.Writer, streams []cfbStream) error {
	type placed struct {
		cfbStream
		start uint32
	}
	var all, big, small []*placed
	for _, s := range streams {
		p := &placed{cfbStream: s, start: secEndOfChain}
		all = append(all, p)
		if len(s.data) >= miniCutoff {
			big = append(big, p)
		} else if len(s.data) > 0 {
			small = append(small, p)
		}
	}

	// Mini stream layout.
	var miniFAT []uint32
	var mini []byte
	for _, p := range small {
		n := sectorsFor(len(p.data), miniSectorSize)
		p.start = uint32(len(miniFAT))
		for i := range n {
			if i == n-1 {
				miniFAT = append(miniFAT, secEndOfChain)
			} else {
				miniFAT = append(miniFAT, uint32(len(miniFAT)+1))
			}
		}
		mini = append(mini, p.data...)
		mini = append(mini, make([]byte, n*miniSectorSize-len(p.data))...)
	}

	// Regular sector layout: big streams, mini stream, mini FAT, directory, FAT.
	a := &allocator{}
	for _, p := range big {
		p.start = a.chain(sectorsFor(len(p.data), sectorSize))
	}
	miniStart := a.chain(sectorsFor(len(mini), sectorSize))
	miniFATSectors := sectorsFor(len(miniFAT)*4, sectorSize)
	miniFATStart := a.chain(miniFATSectors)
	entries := 1 + len(streams)
	dirSectors := sectorsFor(entries*dirEntrySize, sectorSize)
	dirStart := a.chain(dirSectors)

	fatSectors := sectorsFor(int(a.next), sectorSize/4-1)
	if fatSectors > headerDIFAT {
		return errTooLarge
	}
	fatStart := a.next
	for range fatSectors {
		a.fat = append(a.fat, secFAT)
		a.next++
	}

	// Header.
	hdr := make(payload, 0, sectorSize)
	hdr = append(hdr, cfbSignature...)
	hdr = append(hdr, make([]byte, 16)...)
	hdr = hdr.u16(0x003E).u16(0x0003).u16(0xFFFE).u16(9).u16(6)
	hdr = append(hdr, make([]byte, 6)...)
	hdr = hdr.u32(0).u32(uint32(fatSectors)).u32(dirStart).u32(0).u32(miniCutoff)
	if miniFATSectors == 0 {
		hdr = hdr.u32(secEndOfChain)
	} else {
		hdr = hdr.u32(miniFATStart)
	}
	hdr = hdr.u32(uint32(miniFATSectors)).u32(secEndOfChain).u32(0)
	for i := range headerDIFAT {
		if i < fatSectors {
			hdr = hdr.u32(fatStart + uint32(i))
		} else {
			hdr = hdr.u32(secFree)
		}
	}

	// Directory: root entry first, then the streams chained as right siblings
	// in compound file name order.
	order := append([]*placed(nil), all...)
	sort.Slice(order, func(i, j int) bool { return lessName(order[i].name, order[j].name) })

	dir := make(payload, 0, dirSectors*sectorSize)
	rootChild := uint32(noStream)
	if len(order) > 0 {
		rootChild = 1
	}
	rootStart := uint32(secEndOfChain)
	if len(mini) > 0 {
		rootStart = miniStart
	}
	dir = dirEntry(dir, "Root Entry", entryRoot, noStream, rootChild, rootStart, len(mini))
	for i, p := range order {
		right := uint32(noStream)
		if i+1 < len(order) {
			right = uint32(i + 2)
		}
		dir = dirEntry(dir, p.name, entryStream, right, noStream, p.start, len(p.data))
	}
	for len(dir) < dirSectors*sectorSize {
		dir = append(dir, make([]byte, 64+4)...)
		dir = dir.u32(noStream).u32(noStream).u32(noStream)
		dir = append(dir, make([]byte, dirEntrySize-80)...)
	}

	fat := make(payload, 0, fatSectors*sectorSize)
	for _, v := range a.fat {
		fat = fat.u32(v)
	}
	for len(fat) < fatSectors*sectorSize {
		fat = fat.u32(secFree)
	}

	miniFATBytes := make(payload, 0, miniFATSectors*sectorSize)
	for _, v := range miniFAT {
		miniFATBytes = miniFATBytes.u32(v)
	}
	for len(miniFATBytes) < miniFATSectors*sectorSize {
		miniFATBytes = miniFATBytes.u32(secFree)
	}

	parts := [][]byte{hdr}
	for _, p := range big {
		parts = append(parts, padSector(p.data))
	}
	parts = append(parts, padSector(mini), miniFATBytes, dir, fat)
	for _, part := range parts {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

func padSector(b []byte) []byte {
	if rem := len(b) % sectorSize; rem != 0 {
		return append(b[:len(b):len(b)], make([]byte, sectorSize-rem)...)
	}
	return b
}

func dirEntry(p payload, name string, kind byte, right, child, start uint32, size int) payload {
	units := utf16.Encode([]rune(name))
	if len(units) > 31 {
		units = units[:31]
	}
	raw := make(payload, 0, 64)
	for _, u := range units {
		raw = raw.u16(u)
	}
	nameLen := len(raw) + 2
	raw = append(raw, make([]byte, 64-len(raw))...)
	p = append(p, raw...)
	p = p.u16(uint16(nameLen)).u8(kind).u8(colorBlack)
	p = p.u32(noStream).u32(right).u32(child)
	p = append(p, make([]byte, 16+4+8+8)...)
	return p.u32(start).u32(uint32(size)).u32(0)
}

// lessName orders directory names the way compound files compare them:
// shorter names first, then by upper-cased code units.
func lessName(a, b string) bool {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	if len(ua) != len(ub) {
		return len(ua) < len(ub)
	}
	return strings.ToUpper(a) < strings.ToUpper(b)
}
