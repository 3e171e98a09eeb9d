// Package dataset extracts in-memory tabular data from uploaded source files.
// One Dataset is produced per spreadsheet sheet, or one for a whole CSV or
// Parquet file. Datasets are transient: they exist only between parsing and
// materialization.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

type Dataset struct {
	Columns []string
	Rows    [][]any
}

// Source pairs a Dataset with the sheet or file stem it came from. Parsers
// return sources in document order so that a later duplicate name predictably
// wins during reconciliation.
type Source struct {
	Name string
	Data Dataset
}

// ParseFile reads a source file into one or more named Datasets, dispatching
// on the file extension.
func ParseFile(path string) ([]Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err := parseCSV(path)
		if err != nil {
			return nil, fmt.Errorf("parse csv %q: %w", filepath.Base(path), err)
		}
		return []Source{{Name: "data", Data: ds}}, nil
	case ".xlsx", ".xlsm":
		sources, err := parseExcel(path)
		if err != nil {
			return nil, fmt.Errorf("parse workbook %q: %w", filepath.Base(path), err)
		}
		return sources, nil
	case ".parquet":
		ds, err := parseParquet(path)
		if err != nil {
			return nil, fmt.Errorf("parse parquet %q: %w", filepath.Base(path), err)
		}
		return []Source{{Name: "data", Data: ds}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// inferValue converts a raw cell string into the narrowest of int64, float64,
// or string. Empty cells become nil so they materialize as SQL NULL.
func inferValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return v
	}
	return raw
}

// normalizeHeader fills empty header cells and deduplicates repeated names so
// every column has a usable, unique identifier. Synthesized names are taken
// too, so a header already containing "a_1" cannot collide with the rename
// of a duplicate "a".
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if _, dup := seen[name]; dup {
			base := name
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s_%d", base, n)
				if _, taken := seen[candidate]; !taken {
					name = candidate
					break
				}
			}
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	return names
}

// padRow extends a ragged row with nils to the header width and converts each
// cell; extra trailing cells beyond the header are dropped.
func padRow(cells []string, width int) []any {
	row := make([]any, width)
	for i := 0; i < width; i++ {
		if i < len(cells) {
			row[i] = inferValue(cells[i])
		}
	}
	return row
}
