// Package sheetrow provides keyed row access to spreadsheet files: open a
// workbook in either container format, read its first sheet as label-keyed
// records, update cells by key and save it back to the same handle.
package sheetrow

import "log/slog"

// DefaultKeyColumn is the header label that identifies data rows.
const DefaultKeyColumn = "PNO"

// Options configures a Session.
type Options struct {
	// KeyColumn is the header label used by Find and Update.
	KeyColumn string
	// Logger receives lifecycle events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns default session options.
func DefaultOptions() Options {
	return Options{
		KeyColumn: DefaultKeyColumn,
	}
}

func (o Options) keyColumn() string {
	if o.KeyColumn == "" {
		return DefaultKeyColumn
	}
	return o.KeyColumn
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
