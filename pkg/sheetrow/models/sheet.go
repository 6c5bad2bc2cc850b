package models

// SheetData is the readable content of the active sheet.
type SheetData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name" yaml:"book_name"`
	// Format is the container format ("xlsx" or "xls").
	Format string `json:"format" yaml:"format"`
	// Sheet is the name of the active sheet.
	Sheet string `json:"sheet" yaml:"sheet"`
	// Headers lists the header labels in column order.
	Headers []string `json:"headers" yaml:"headers"`
	// Records holds one entry per present data row.
	Records []Record `json:"records,omitempty" yaml:"records,omitempty"`
}

// UpdateResult reports the outcome of a keyed cell update.
type UpdateResult struct {
	Key     string `json:"key" yaml:"key"`
	Target  string `json:"target" yaml:"target"`
	Value   string `json:"value" yaml:"value"`
	Updated bool   `json:"updated" yaml:"updated"`
	// Saved is set when the document was written back.
	Saved bool `json:"saved" yaml:"saved"`
}

// Properties holds document properties such as Title and Author.
type Properties map[string]string
