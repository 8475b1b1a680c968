package binning

import (
	"log/slog"
	"slices"

	"fieldcat/internal/catalog"

	"github.com/soniakeys/unit"
)

// Sky coordinate columns, in degrees.
const (
	ColumnRA  = "ra"
	ColumnDec = "dec"
)

// Positions are the sky coordinates of the sources of one bucket.
type Positions struct {
	RA  []unit.RA
	Dec []unit.Angle
}

// PositionsFor resolves the identifiers of every bucket of m to sky coordinates, in catalog order.
// Identifiers unknown to cat are skipped. m may come from any catalog sharing identifiers with cat.
func PositionsFor(cat *catalog.Catalog, m Mapping) (map[string]Positions, error) {
	ra, err := cat.Finite(catalog.OpBinning, ColumnRA, nil)
	if err != nil {
		return nil, err
	}
	dec, err := cat.Finite(catalog.OpBinning, ColumnDec, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Positions, len(m))
	for k, ids := range m {
		rows := make([]int, 0, len(ids))
		for _, id := range ids {
			if row, ok := cat.Row(id); ok {
				rows = append(rows, row)
			}
		}
		if missing := len(ids) - len(rows); missing > 0 {
			slog.Warn("Bucket references unknown sources", "key", k, "missing", missing)
		}
		slices.Sort(rows)

		p := Positions{RA: make([]unit.RA, len(rows)), Dec: make([]unit.Angle, len(rows))}
		for i, row := range rows {
			p.RA[i] = unit.RAFromDeg(ra[row])
			p.Dec[i] = unit.AngleFromDeg(dec[row])
		}
		out[k] = p
	}
	return out, nil
}
