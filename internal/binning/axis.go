package binning

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"fieldcat/internal/catalog"

	"gonum.org/v1/gonum/floats"
)

// Transform is applied to both the column values and the edges of an axis before comparison.
type Transform int

const (
	// Identity compares raw values.
	Identity Transform = iota
	// Exp10 compares 10^v; used for stellar masses stored as log10 when binning in linear mass.
	Exp10
)

func (t Transform) apply(v float64) float64 {
	if t == Exp10 {
		return math.Pow(10, v)
	}
	return v
}

var axisName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(_[A-Za-z][A-Za-z0-9]*)*$`)

// writableName reports whether name reads back from a bucket key as a name: none of its tokens may
// be a threshold marker or look like an encoded value, e.g. "n2".
func writableName(name string) bool {
	if !axisName.MatchString(name) {
		return false
	}
	for _, token := range strings.Split(name, tokenSeparator) {
		if token == aboveToken || token == belowToken || encodedValue.MatchString(token) {
			return false
		}
	}
	return true
}

// Axis is one dimension of a binning. Exactly one of Edges, Threshold or Discrete selects its cells;
// an axis with none of them is degenerate: one global cell that reads no column and contributes
// no key segment.
type Axis struct {
	// Name prefixes the axis segment in bucket keys, e.g. "z" or "m".
	Name string
	// Column is the catalog column the axis reads.
	Column string
	// Edges are two or more strictly monotonic values, ascending or descending.
	// Cell i is [min(e[i],e[i+1]), max(e[i],e[i+1])).
	Edges []float64
	// KeyEdges, when set, are written in keys instead of Edges. The lookback axis compares redshifts
	// but names its cells by lookback time.
	KeyEdges []float64
	// Threshold splits the axis in two cells: >= Threshold and < Threshold.
	Threshold *float64
	// Discrete makes one cell per distinct column value.
	Discrete bool

	Transform Transform
	// Replacement substitutes non-finite column values. Without it a non-finite value is an error.
	Replacement *float64
}

// Range creates an axis over edges.
func Range(name, column string, edges []float64) Axis {
	return Axis{Name: name, Column: column, Edges: edges}
}

// Split creates an axis with two cells around threshold.
func Split(name, column string, threshold float64) Axis {
	return Axis{Name: name, Column: column, Threshold: &threshold}
}

// Distinct creates an axis with one cell per distinct value of column.
func Distinct(name, column string) Axis {
	return Axis{Name: name, Column: column, Discrete: true}
}

// Degenerate creates an axis with a single global cell.
func Degenerate() Axis {
	return Axis{}
}

// IsDegenerate reports whether the axis has a single global cell.
func (a Axis) IsDegenerate() bool {
	return len(a.Edges) == 0 && a.Threshold == nil && !a.Discrete
}

// Validate checks the axis against the columns of cat.
func (a Axis) Validate(cat *catalog.Catalog) error {
	if a.IsDegenerate() {
		if len(a.KeyEdges) > 0 {
			return a.invalid("key edges given without edges")
		}
		return nil
	}

	if !writableName(a.Name) {
		return a.invalid(fmt.Sprintf("axis name %q cannot be written in a bucket key", a.Name))
	}
	if !cat.Has(a.Column) {
		return a.invalid("unknown column")
	}
	if a.Replacement != nil && !catalog.IsFinite(*a.Replacement) {
		return a.invalid("replacement must be finite")
	}

	selectors := 0
	if len(a.Edges) > 0 {
		selectors++
	}
	if a.Threshold != nil {
		selectors++
	}
	if a.Discrete {
		selectors++
	}
	if selectors > 1 {
		return a.invalid("edges, threshold and discrete are mutually exclusive")
	}

	switch {
	case a.Threshold != nil:
		if !catalog.IsFinite(*a.Threshold) {
			return a.invalid("threshold must be finite")
		}
	case a.Discrete:
		if a.Transform != Identity {
			return a.invalid("discrete axes compare raw values")
		}
	default:
		if err := validateEdges(a.Edges); err != nil {
			return a.invalid(err.Error())
		}
		keys := a.Edges
		if a.KeyEdges != nil {
			if len(a.KeyEdges) != len(a.Edges) {
				return a.invalid(fmt.Sprintf("%d key edges for %d edges", len(a.KeyEdges), len(a.Edges)))
			}
			if err := validateEdges(a.KeyEdges); err != nil {
				return a.invalid("key edges: " + err.Error())
			}
			keys = a.KeyEdges
		}
		if err := distinctKeys(keys); err != nil {
			return a.invalid(err.Error())
		}
	}
	if a.Threshold == nil && !a.Discrete && a.Transform == Exp10 {
		for _, e := range a.Edges {
			if math.IsInf(math.Pow(10, e), 0) {
				return a.invalid(fmt.Sprintf("edge %g overflows the linear transform", e))
			}
		}
	}
	return nil
}

// validateEdges requires at least two finite, strictly monotonic edges.
func validateEdges(edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("at least 2 edges are required, got %d", len(edges))
	}
	if floats.HasNaN(edges) || math.IsInf(floats.Max(edges), 0) || math.IsInf(floats.Min(edges), 0) {
		return fmt.Errorf("edges must be finite")
	}

	ascending := edges[1] > edges[0]
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] || (edges[i] > edges[i-1]) != ascending {
			return fmt.Errorf("edges must be strictly monotonic, got %v", edges)
		}
	}
	return nil
}

// distinctKeys requires edges to stay distinct once rounded for the bucket key.
func distinctKeys(edges []float64) error {
	encoded := make([]string, len(edges))
	for i, e := range edges {
		encoded[i] = Encode(e)
	}
	slices.Sort(encoded)
	if len(slices.Compact(encoded)) != len(edges) {
		return fmt.Errorf("edges %v collide once rounded to 3 decimals", edges)
	}
	return nil
}

func (a Axis) invalid(reason string) error {
	return catalog.NewConfigurationError(catalog.OpBinning, a.Column, reason)
}

// cell is one interval (or value) of an axis.
type cell struct {
	segment  *Segment
	contains func(v float64) bool
}

// cells lists the cells of a validated axis. values are the column values the axis compares, used
// by discrete axes to enumerate their cells.
func (a Axis) cells(values []float64) []cell {
	switch {
	case a.IsDegenerate():
		return []cell{{contains: func(float64) bool { return true }}}

	case a.Threshold != nil:
		t := a.Transform.apply(*a.Threshold)
		return []cell{
			{
				segment:  &Segment{Name: a.Name, Kind: SegmentAbove, Lo: Round(*a.Threshold)},
				contains: func(v float64) bool { return v >= t },
			},
			{
				segment:  &Segment{Name: a.Name, Kind: SegmentBelow, Lo: Round(*a.Threshold)},
				contains: func(v float64) bool { return v < t },
			},
		}

	case a.Discrete:
		seen := make(map[string]bool)
		var cs []cell
		for _, v := range values {
			code := Encode(v)
			if seen[code] {
				continue
			}
			seen[code] = true
			target := Round(v)
			cs = append(cs, cell{
				segment:  &Segment{Name: a.Name, Kind: SegmentDiscrete, Lo: target},
				contains: func(v float64) bool { return Round(v) == target },
			})
		}
		return cs

	default:
		keys := a.Edges
		if a.KeyEdges != nil {
			keys = a.KeyEdges
		}
		cs := make([]cell, len(a.Edges)-1)
		for i := range cs {
			pair := a.Edges[i : i+2]
			lo, hi := a.Transform.apply(floats.Min(pair)), a.Transform.apply(floats.Max(pair))
			cs[i] = cell{
				segment:  &Segment{Name: a.Name, Kind: SegmentRange, Lo: Round(keys[i]), Hi: Round(keys[i+1])},
				contains: func(v float64) bool { return v >= lo && v < hi },
			}
		}
		return cs
	}
}

// values returns the transformed column values of a validated, non-degenerate axis.
func (a Axis) values(cat *catalog.Catalog) ([]float64, error) {
	raw, err := cat.Finite(catalog.OpBinning, a.Column, a.Replacement)
	if err != nil {
		return nil, err
	}
	if a.Transform == Identity {
		return raw, nil
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = a.Transform.apply(v)
	}
	return out, nil
}
