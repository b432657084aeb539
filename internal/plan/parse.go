package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a plan document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension. Anything that
// is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a plan document, validates it against the plan schema and
// builds the Plan. Every failure wraps ErrMalformedPlan.
func Parse(data []byte, format Format) (*Plan, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, malformed("", "decode yaml: %v", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, malformed("", "decode json: %v", err)
		}
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}

	doc = NormalizeArgument(doc)
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("", "expected object at top level, got %T", doc)
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return FromMap(m)
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	p, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", path, err)
	}
	return p, nil
}
