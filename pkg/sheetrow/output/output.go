// Package output serialises models for the command line tool.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (must be json or yaml)", s)
}

// ToJSON encodes v as JSON, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ToYAML encodes v as YAML with two-space indentation.
func ToYAML(v any) ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Encode encodes v in format f. YAML is always block style, so pretty only
// affects JSON.
func Encode(f Format, v any, pretty bool) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ToJSON(v, pretty)
	case FormatYAML:
		return ToYAML(v)
	}
	return nil, fmt.Errorf("unknown output format %q", string(f))
}
