package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nikbrunner/minimark/internal/model"
)

// ErrNotArray is returned for JSON input whose top level is not an array.
var ErrNotArray = errors.New("import file must contain a JSON array")

// Format names an import file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// DetectFormat picks the format from a file name.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".html", ".htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
}

// Parse reads r in the given format.
func Parse(r io.Reader, format Format) ([]model.Record, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(r)
	case FormatHTML:
		return ParseHTML(r)
	}
	return nil, fmt.Errorf("unsupported import format %q", format)
}

// ParseJSON reads an export file: an array of records. Fields may be missing
// or null; repository.BulkAdd normalizes them.
func ParseJSON(r io.Reader) ([]model.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrNotArray
	}

	var recs []model.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	return recs, nil
}
