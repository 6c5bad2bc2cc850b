package sheetrow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteMode selects how OpenWrite treats existing content.
type WriteMode int

const (
	// WriteTruncate replaces the existing content.
	WriteTruncate WriteMode = iota
	// WriteAppend appends to the existing content.
	WriteAppend
)

func (m WriteMode) String() string {
	switch m {
	case WriteTruncate:
		return "truncate"
	case WriteAppend:
		return "append"
	}
	return fmt.Sprintf("WriteMode(%d)", int(m))
}

// Storage gives independent read and write access to the content behind an
// opaque handle. OpenRead may be called any number of times.
type Storage interface {
	OpenRead(handle string) (io.ReadCloser, error)
	OpenWrite(handle string, mode WriteMode) (io.WriteCloser, error)
}

// FileStorage is a Storage on the local file system. Handles are paths,
// resolved against Dir when relative.
type FileStorage struct {
	Dir string
}

func (s FileStorage) path(handle string) string {
	if s.Dir == "" || filepath.IsAbs(handle) {
		return handle
	}
	return filepath.Join(s.Dir, handle)
}

func (s FileStorage) OpenRead(handle string) (io.ReadCloser, error) {
	return os.Open(s.path(handle))
}

func (s FileStorage) OpenWrite(handle string, mode WriteMode) (io.WriteCloser, error) {
	flag := os.O_WRONLY | os.O_CREATE
	switch mode {
	case WriteTruncate:
		flag |= os.O_TRUNC
	case WriteAppend:
		flag |= os.O_APPEND
	default:
		return nil, fmt.Errorf("unsupported write mode %s", mode)
	}
	return os.OpenFile(s.path(handle), flag, 0o644)
}
