// Package models defines the data structures returned to callers and
// rendered by the command line tool.
package models

// Record maps header labels to the coerced string values of one data row.
// Every mapped label is present; missing cells map to "".
type Record map[string]string
