// Package binning partitions a classified catalog into named buckets of source identifiers.
package binning

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"fieldcat/internal/catalog"
	"fieldcat/internal/population"
)

// Mapping holds bucket key -> source identifiers in catalog order.
type Mapping map[string][]int64

// Keys returns the bucket keys in lexical order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Merge copies every bucket of src into m, replacing buckets stored under the same key.
func (m Mapping) Merge(src Mapping) {
	for k, ids := range src {
		m[k] = slices.Clone(ids)
	}
}

// Clone returns a deep copy of m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	out.Merge(m)
	return out
}

// Count returns the number of identifiers over all buckets.
func (m Mapping) Count() int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}

// Binner bins one catalog. It only reads the catalog, so any number of binnings may run
// concurrently as long as each writes to its own Mapping.
type Binner struct {
	cat *catalog.Catalog
}

// New creates a binner over cat.
func New(cat *catalog.Catalog) *Binner {
	return &Binner{cat: cat}
}

// Bin crosses the cells of axes (in the given order) with pops and stores the identifiers falling
// in each combination under its encoded key. Every combination gets a bucket, possibly empty.
//
// With an empty pops no population filter applies and keys carry no suffix; otherwise the catalog
// must be classified and each population's Kind becomes the key suffix.
func (b *Binner) Bin(axes []Axis, pops population.Scheme) (Mapping, error) {
	if len(axes) == 0 {
		return nil, catalog.NewConfigurationError(catalog.OpBinning, "", "no axes given")
	}

	var labels []int
	if len(pops) > 0 {
		if err := pops.Validate(); err != nil {
			return nil, catalog.NewConfigurationError(catalog.OpBinning, catalog.LabelColumn, err.Error())
		}
		var err error
		if labels, err = b.cat.Labels(); err != nil {
			return nil, err
		}
	}

	names := make(map[string]bool, len(axes))
	values := make([][]float64, len(axes))
	cells := make([][]cell, len(axes))
	for i, axis := range axes {
		if err := axis.Validate(b.cat); err != nil {
			return nil, err
		}
		if !axis.IsDegenerate() {
			if names[axis.Name] {
				return nil, catalog.NewConfigurationError(catalog.OpBinning, axis.Column,
					fmt.Sprintf("axis name %q is used twice", axis.Name))
			}
			names[axis.Name] = true

			v, err := axis.values(b.cat)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		cells[i] = axis.cells(values[i])
	}

	if len(names) == 0 && len(pops) == 0 {
		return nil, catalog.NewConfigurationError(catalog.OpBinning, "", "every axis is degenerate and no population is given")
	}

	m := make(Mapping)
	combos := product(cells)
	for _, combo := range combos {
		for _, pop := range partition(pops) {
			m[key(cells, combo, pop)] = make([]int64, 0)
		}
	}

	ids := b.cat.IDs()
	index := make([]int, len(axes))
rows:
	for row, id := range ids {
		for i := range axes {
			index[i] = -1
			for j, c := range cells[i] {
				var v float64
				if values[i] != nil {
					v = values[i][row]
				}
				if c.contains(v) {
					index[i] = j
					break
				}
			}
			if index[i] < 0 {
				continue rows
			}
		}

		var pop population.Population
		if labels != nil {
			var ok bool
			if pop, ok = findLabel(pops, labels[row]); !ok {
				continue
			}
		}
		k := key(cells, index, pop)
		m[k] = append(m[k], id)
	}

	slog.Debug("Binned catalog", "axes", axisNames(axes), "buckets", len(m), "sources", m.Count())
	return m, nil
}

// product enumerates the index combinations of the cells of every axis, the last axis varying
// fastest.
func product(cells [][]cell) [][]int {
	combos := [][]int{{}}
	for _, cs := range cells {
		next := make([][]int, 0, len(combos)*len(cs))
		for _, prefix := range combos {
			for j := range cs {
				next = append(next, append(slices.Clone(prefix), j))
			}
		}
		combos = next
	}
	return combos
}

// partition returns the populations to bucket, or a single unfiltered placeholder.
func partition(pops population.Scheme) population.Scheme {
	if len(pops) == 0 {
		return population.Scheme{{}}
	}
	return pops
}

func findLabel(pops population.Scheme, label int) (population.Population, bool) {
	for _, p := range pops {
		if p.Label == label {
			return p, true
		}
	}
	return population.Population{}, false
}

func key(cells [][]cell, index []int, pop population.Population) string {
	var k Key
	for i, j := range index {
		if s := cells[i][j].segment; s != nil {
			k.Segments = append(k.Segments, *s)
		}
	}
	k.Suffix = strings.TrimPrefix(pop.Kind.Suffix(), tokenSeparator)
	return k.String()
}

func axisNames(axes []Axis) []string {
	var names []string
	for _, a := range axes {
		if !a.IsDegenerate() {
			names = append(names, a.Name)
		}
	}
	return names
}
