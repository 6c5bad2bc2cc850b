package biff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/richardlehane/msoleps"
)

// Properties decodes the property-set streams (summary and document summary
// information) carried by the workbook. Property names are those assigned by
// msoleps; later streams do not override earlier values.
func (wb *Workbook) Properties() (map[string]string, error) {
	names := make([]string, 0, len(wb.streams))
	for name := range wb.streams {
		if strings.HasPrefix(name, "\x05") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	props := make(map[string]string)
	for _, name := range names {
		ps, err := readPropertySet(wb.streams[name])
		if err != nil {
			return nil, fmt.Errorf("biff: property set %q: %w", strings.TrimPrefix(name, "\x05"), err)
		}
		for _, p := range ps.Property {
			if _, ok := props[p.Name]; ok || p.Name == "" {
				continue
			}
			props[p.Name] = strings.TrimSpace(p.String())
		}
	}
	return props, nil
}

// SetStream stores a root-level compound file stream written alongside the
// workbook stream. It is mainly useful for carrying property sets.
func (wb *Workbook) SetStream(name string, data []byte) {
	wb.streams[name] = data
}

// Stream returns a carried stream by full name.
func (wb *Workbook) Stream(name string) ([]byte, bool) {
	data, ok := wb.streams[name]
	return data, ok
}

// readPropertySet decodes one property-set stream. msoleps indexes offsets
// from the stream without bounds checks, so malformed input is turned into an
// error here.
func readPropertySet(data []byte) (ps *msoleps.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			ps, err = nil, fmt.Errorf("%w: malformed property set", ErrCorrupt)
		}
	}()
	return msoleps.NewFrom(bytes.NewReader(data))
}
