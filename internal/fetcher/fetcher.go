// Package fetcher reads tabular and JSON source files (CSV, XLSX, JSON,
// JSONL) into typed records.
package fetcher

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies a supported source file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", eris.Errorf("fetcher: unsupported file extension %q", filepath.Ext(path))
	}
}

// ReadFile decodes every record in path into T, dispatching on the file
// extension. Tabular formats map columns to `csv` struct tags; JSON formats
// use `json` tags.
func ReadFile[T any](path string) ([]T, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return ReadCSVFile[T](path, CSVOptions{})
	case FormatXLSX:
		return ReadXLSX[T](path, XLSXOptions{})
	case FormatJSON:
		return ReadJSONFile[T](path)
	default:
		return ReadJSONLFile[T](path)
	}
}
