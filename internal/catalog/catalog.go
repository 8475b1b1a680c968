package catalog

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// LabelColumn is the column written by the classifier.
const LabelColumn = "sfg"

// Record is one catalog row keyed by column name. Values are float64; the map form is what the
// CEL programs of the rule evaluator consume.
type Record map[string]any

// Catalog is an immutable in-memory table of sources: one identifier per row and any number of
// named numeric columns of the same length.
//
// The only way to "add" a column is WithColumn, which returns a new Catalog sharing the untouched
// column slices with the receiver. Readers holding the old value never observe a half-written column.
type Catalog struct {
	ids     []int64
	columns map[string][]float64
	index   map[int64]int
}

// New builds a catalog from identifiers and columns.
// Every column must have len(ids) values and identifiers must be unique.
// The slices are not copied; callers must not modify them afterwards.
func New(ids []int64, columns map[string][]float64) (*Catalog, error) {
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := index[id]; dup {
			return nil, NewConfigurationError(OpIngestion, "", fmt.Sprintf("duplicate identifier %d at row %d", id, i))
		}
		index[id] = i
	}

	cols := make(map[string][]float64, len(columns))
	for name, values := range columns {
		if name == "" {
			return nil, NewConfigurationError(OpIngestion, name, "empty column name")
		}
		if len(values) != len(ids) {
			return nil, NewConfigurationError(OpIngestion, name,
				fmt.Sprintf("has %d values, catalog has %d identifiers", len(values), len(ids)))
		}
		cols[name] = values
	}

	return &Catalog{ids: ids, columns: cols, index: index}, nil
}

// Len returns the number of sources.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// IDs returns the identifier column. The slice must not be modified.
func (c *Catalog) IDs() []int64 {
	return c.ids
}

// Row returns the row index of an identifier.
func (c *Catalog) Row(id int64) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// Column returns the values of a column. The slice must not be modified.
func (c *Catalog) Column(name string) ([]float64, bool) {
	values, ok := c.columns[name]
	return values, ok
}

// Has reports whether the catalog carries the column.
func (c *Catalog) Has(name string) bool {
	_, ok := c.columns[name]
	return ok
}

// Columns returns the column names in lexical order.
func (c *Catalog) Columns() []string {
	names := make([]string, 0, len(c.columns))
	for name := range c.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record returns row i as a Record holding every column.
func (c *Catalog) Record(i int) Record {
	rec := make(Record, len(c.columns))
	for name, values := range c.columns {
		rec[name] = values[i]
	}
	return rec
}

// WithColumn returns a copy of the catalog in which name holds values.
// An existing column of the same name is replaced in the copy only.
func (c *Catalog) WithColumn(name string, values []float64) (*Catalog, error) {
	if name == "" {
		return nil, NewConfigurationError(OpIngestion, name, "empty column name")
	}
	if len(values) != len(c.ids) {
		return nil, NewConfigurationError(OpIngestion, name,
			fmt.Sprintf("has %d values, catalog has %d identifiers", len(values), len(c.ids)))
	}

	cols := make(map[string][]float64, len(c.columns)+1)
	for k, v := range c.columns {
		cols[k] = v
	}
	cols[name] = slices.Clone(values)

	return &Catalog{ids: c.ids, columns: cols, index: c.index}, nil
}

// Labels returns the population label column as integers.
func (c *Catalog) Labels() ([]int, error) {
	values, ok := c.columns[LabelColumn]
	if !ok {
		return nil, NewConfigurationError(OpBinning, LabelColumn, "catalog is not classified")
	}
	labels := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, NewDataError(OpBinning, LabelColumn, i, v)
		}
		labels[i] = int(v)
	}
	return labels, nil
}
