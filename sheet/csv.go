package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVTable is a Table backed by a local CSV file, used for offline runs and
// tests. Replace writes through a temp file and renames it into place so a
// killed run never leaves a half-written sheet behind.
type CSVTable struct {
	path string
}

// NewCSVTable binds a Table to the CSV file at path.
func NewCSVTable(path string) *CSVTable {
	return &CSVTable{path: path}
}

// Read loads the whole file, header row first.
func (c *CSVTable) Read(ctx context.Context) ([][]string, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open csv table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	values, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv table: %w", err)
	}
	return values, nil
}

// Replace overwrites the file with values.
func (c *CSVTable) Replace(ctx context.Context, values [][]string) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".pricesync-*.csv")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.WriteAll(values); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp csv: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace csv table: %w", err)
	}
	return nil
}
