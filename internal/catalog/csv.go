package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a catalog from a CSV file whose first row names the columns.
// idColumn names the identifier column; every other column must be numeric.
func LoadCSV(path, idColumn string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cat, err := ReadCSV(file, idColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Catalog loaded", "path", path, "sources", cat.Len(), "columns", len(cat.columns))
	return cat, nil
}

// ReadCSV reads a catalog from CSV data. Empty cells are read as NaN; "nan" and "inf" spellings
// accepted by strconv.ParseFloat are kept as non-finite values for the caller to clean explicitly.
func ReadCSV(r io.Reader, idColumn string) (*Catalog, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewConfigurationError(OpIngestion, "", "missing header row")
		}
		return nil, err
	}

	idIndex := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == idColumn {
			idIndex = i
		}
	}
	if idIndex < 0 {
		return nil, NewConfigurationError(OpIngestion, idColumn, "identifier column not found in header")
	}

	var ids []int64
	columns := make(map[string][]float64, len(header)-1)
	for i, name := range header {
		if i != idIndex {
			columns[name] = nil
		}
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := parseID(rec[idIndex])
		if err != nil {
			return nil, NewConfigurationError(OpIngestion, idColumn, fmt.Sprintf("line %d: %v", line, err))
		}
		ids = append(ids, id)

		for i, cell := range rec {
			if i == idIndex {
				continue
			}
			v, err := parseValue(cell)
			if err != nil {
				return nil, NewConfigurationError(OpIngestion, header[i], fmt.Sprintf("line %d: %v", line, err))
			}
			columns[header[i]] = append(columns[header[i]], v)
		}
	}

	for name, values := range columns {
		if values == nil {
			columns[name] = []float64{}
		}
	}
	if ids == nil {
		ids = []int64{}
	}
	return New(ids, columns)
}

// WriteCSV writes the catalog with the identifier column first, followed by the other columns in
// lexical order.
func (c *Catalog) WriteCSV(w io.Writer, idColumn string) error {
	writer := csv.NewWriter(w)
	names := c.Columns()

	if err := writer.Write(append([]string{idColumn}, names...)); err != nil {
		return err
	}

	row := make([]string, len(names)+1)
	for i, id := range c.ids {
		row[0] = strconv.FormatInt(id, 10)
		for j, name := range names {
			row[j+1] = strconv.FormatFloat(c.columns[name][i], 'g', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func parseID(cell string) (int64, error) {
	cell = strings.TrimSpace(cell)
	if id, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return id, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, fmt.Errorf("invalid identifier %q", cell)
	}
	return int64(v), nil
}

func parseValue(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
