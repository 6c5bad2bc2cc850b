package sheetrow

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/models"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/parser"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/workbook"
)

// Session owns at most one open document and serves keyed reads and
// updates on its first sheet. A Session is not safe for concurrent use.
//
// A closed session rejects every operation except Open and Close with
// ErrNotOpen.
type Session struct {
	storage Storage
	opts    Options
	log     *slog.Logger

	handle  string
	doc     workbook.Document
	sheet   workbook.Sheet
	headers *parser.HeaderMap
}

// NewSession returns a closed session reading and writing through storage.
func NewSession(storage Storage, opts Options) *Session {
	return &Session{storage: storage, opts: opts, log: opts.logger()}
}

// Open opens the document behind handle, replacing any open document, and
// maps the header row of its first sheet. A missing header row is not an
// error here; reads and updates report ErrNotMapped instead.
//
// Read failures are returned as *IOError; content neither container parser
// accepts fails with ErrUnsupportedFormat. On failure the session is closed.
func (s *Session) Open(handle string) error {
	if s.doc != nil {
		s.log.Warn("replacing open document", "handle", s.handle, "next", handle)
		if err := s.Close(); err != nil {
			s.log.Warn("close of replaced document failed", "error", err)
		}
	}

	doc, err := workbook.Detect(func() (io.ReadCloser, error) {
		rc, err := s.storage.OpenRead(handle)
		if err != nil {
			return nil, NewIOError("open", handle, err)
		}
		return rc, nil
	})
	if err != nil {
		return err
	}
	sheet, err := doc.Sheet(0)
	if err != nil {
		doc.Close()
		return err
	}

	s.handle, s.doc, s.sheet = handle, doc, sheet
	s.headers = nil
	if h, ok := parser.BuildHeaderMap(sheet); ok {
		s.headers = h
		if dups := h.Duplicates(); len(dups) > 0 {
			s.log.Warn("duplicate header labels, later columns win", "handle", handle, "labels", dups)
		}
	}
	s.log.Info("document opened", "handle", handle, "format", doc.Format().String(),
		"sheet", sheet.Name(), "columns", s.columnCount())
	return nil
}

func (s *Session) columnCount() int {
	if s.headers == nil {
		return 0
	}
	return s.headers.Len()
}

// IsOpen reports whether a document is open.
func (s *Session) IsOpen() bool {
	return s.doc != nil
}

// Handle returns the handle of the open document, or "".
func (s *Session) Handle() string {
	return s.handle
}

// Format returns the container format of the open document.
func (s *Session) Format() (workbook.Format, error) {
	if s.doc == nil {
		return workbook.FormatUnknown, ErrNotOpen
	}
	return s.doc.Format(), nil
}

// SheetName returns the name of the active sheet.
func (s *Session) SheetName() (string, error) {
	if s.doc == nil {
		return "", ErrNotOpen
	}
	return s.sheet.Name(), nil
}

func (s *Session) mapped() error {
	if s.doc == nil {
		return ErrNotOpen
	}
	if s.headers == nil {
		return ErrNotMapped
	}
	return nil
}

// Headers returns the header labels in column order.
func (s *Session) Headers() ([]string, error) {
	if err := s.mapped(); err != nil {
		return nil, err
	}
	return s.headers.Labels(), nil
}

// ReadAll returns a record for every present data row.
func (s *Session) ReadAll() ([]models.Record, error) {
	if err := s.mapped(); err != nil {
		return nil, err
	}
	return parser.ReadAll(s.sheet, s.headers), nil
}

// FindByKey returns the first record whose keyLabel column equals value.
// The boolean is false when the label is unknown or nothing matches.
func (s *Session) FindByKey(keyLabel, value string) (models.Record, bool, error) {
	if err := s.mapped(); err != nil {
		return nil, false, err
	}
	rec, ok := parser.FindByKey(s.sheet, s.headers, keyLabel, value)
	return rec, ok, nil
}

// Find looks a record up by the configured key column.
func (s *Session) Find(value string) (models.Record, bool, error) {
	return s.FindByKey(s.opts.keyColumn(), value)
}

// UpdateCell writes newValue as text into the target column of the row whose
// keyLabel column equals keyValue, appending target as a new header column
// when needed. The change stays in memory until Save.
func (s *Session) UpdateCell(keyLabel, keyValue, target, newValue string) (bool, error) {
	if err := s.mapped(); err != nil {
		return false, err
	}
	width := s.headers.Len()
	ok, err := parser.UpdateCell(s.sheet, s.headers, keyLabel, keyValue, target, newValue)
	if err != nil {
		return false, err
	}
	if ok && s.headers.Len() != width {
		s.log.Debug("header column appended", "handle", s.handle, "label", target)
	}
	return ok, nil
}

// Update updates a cell of the row identified by the configured key column.
func (s *Session) Update(keyValue, target, newValue string) (bool, error) {
	return s.UpdateCell(s.opts.keyColumn(), keyValue, target, newValue)
}

// Properties returns the document properties of the open document.
func (s *Session) Properties() (models.Properties, error) {
	if s.doc == nil {
		return nil, ErrNotOpen
	}
	props, err := s.doc.Properties()
	if err != nil {
		return nil, err
	}
	return models.Properties(props), nil
}

// Save writes the document back to the handle it was opened from. The
// document is serialised before the handle is opened for writing, so an
// encoding failure leaves the stored content untouched.
func (s *Session) Save() error {
	if s.doc == nil {
		return ErrNotOpen
	}
	var buf bytes.Buffer
	if err := s.doc.Write(&buf); err != nil {
		return err
	}

	size := buf.Len()
	w, err := s.storage.OpenWrite(s.handle, WriteTruncate)
	if err != nil {
		return NewIOError("write", s.handle, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		w.Close()
		return NewIOError("write", s.handle, err)
	}
	if err := w.Close(); err != nil {
		return NewIOError("write", s.handle, err)
	}
	s.log.Info("document saved", "handle", s.handle, "bytes", size)
	return nil
}

// Close releases the open document. Closing a closed session is a no-op.
func (s *Session) Close() error {
	if s.doc == nil {
		return nil
	}
	err := s.doc.Close()
	s.log.Info("document closed", "handle", s.handle)
	s.handle, s.doc, s.sheet, s.headers = "", nil, nil, nil
	return err
}
