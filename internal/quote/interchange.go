package quote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidImport is returned when an import payload is not an array of
// quote objects. Nothing from such a payload is applied.
var ErrInvalidImport = errors.New("invalid import payload")

// Format selects the file format used for export and import.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// entry is the exchanged shape. Remote identifiers are never exported.
type entry struct {
	Text     string `json:"text" yaml:"text"`
	Category string `json:"category" yaml:"category"`
}

// Export writes the collection as an array of {text, category}.
// JSON output is indented with two spaces and ends with a newline.
func Export(w io.Writer, c Collection, format Format) error {
	entries := make([]entry, 0, len(c))
	for _, r := range c {
		entries = append(entries, entry{Text: r.Text, Category: r.Category})
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ParseImport decodes an import payload into local-only records.
//
// The payload must be an array. Elements whose text is blank are dropped and
// a missing category becomes DefaultCategory. Any decode failure rejects the
// whole payload with ErrInvalidImport.
func ParseImport(data []byte, format Format) ([]Record, error) {
	var entries []entry

	switch format {
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
		if node.Kind != yaml.DocumentNode || len(node.Content) != 1 || node.Content[0].Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: expected a list of quotes", ErrInvalidImport)
		}
		if err := node.Content[0].Decode(&entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
	case FormatJSON, "":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
		}
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidImport, format)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		records = append(records, Record{Text: e.Text, Category: strings.TrimSpace(e.Category)}.Normalize())
	}
	return records, nil
}
