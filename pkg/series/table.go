// Package series loads progress.csv metric logs and turns them into
// filtered (x, y) series.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table is a column-oriented numeric view of a metric log. Missing or
// non-numeric cells are NaN.
type Table struct {
	Columns []string
	values  map[string][]float64
	rows    int
}

// Rows returns the number of data rows.
func (t *Table) Rows() int {
	return t.rows
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.values[name]

	return v, ok
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.values[name]

	return ok
}

// LoadCSV reads a delimited metric log with a header row.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from a query result
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}

// ReadCSV parses a metric log from r. Short rows are padded with NaN.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty metric log (no header row)")
		}

		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := &Table{
		Columns: make([]string, len(header)),
		values:  make(map[string][]float64, len(header)),
	}

	for i, h := range header {
		name := strings.TrimSpace(h)
		t.Columns[i] = name
		t.values[name] = make([]float64, 0, 256)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", t.rows+2, err)
		}

		for i, name := range t.Columns {
			v := math.NaN()
			if i < len(record) {
				v = parseCell(record[i])
			}

			t.values[name] = append(t.values[name], v)
		}

		t.rows++
	}

	return t, nil
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}

	return v
}
