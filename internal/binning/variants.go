package binning

import (
	"fmt"

	"fieldcat/internal/catalog"
	"fieldcat/internal/population"
)

// Catalog columns read by the named binnings.
const (
	ColumnRedshift = "z_peak"
	ColumnMass     = "LMASS"
	ColumnParent   = "parent"
)

// Key prefixes of the named binnings.
const (
	RedshiftAxisName = "z"
	MassAxisName     = "m"
	LookbackAxisName = "lookt"
	ParentAxisName   = "sed"
)

// Cosmology converts lookback times (Gyr) to redshifts.
type Cosmology interface {
	AgeOfUniverse() float64
	RedshiftAtLookbackTime(t float64) (float64, error)
}

func redshiftAxis(znodes []float64) Axis {
	return Range(RedshiftAxisName, ColumnRedshift, znodes)
}

func massAxis(mnodes []float64, linearMass bool) Axis {
	a := Range(MassAxisName, ColumnMass, mnodes)
	if linearMass {
		a.Transform = Exp10
	}
	return a
}

// MassRedshift bins every population of scheme by redshift and stellar mass:
// z_<lo>_<hi>__m_<lo>_<hi>_<kind>. With linearMass the mass cells are compared in linear mass.
func (b *Binner) MassRedshift(znodes, mnodes []float64, scheme population.Scheme, linearMass bool) (Mapping, error) {
	return b.Bin([]Axis{redshiftAxis(znodes), massAxis(mnodes, linearMass)}, scheme)
}

// Redshift bins every population of scheme by redshift alone: z_<lo>_<hi>_<kind>.
func (b *Binner) Redshift(znodes []float64, scheme population.Scheme) (Mapping, error) {
	return b.Bin([]Axis{redshiftAxis(znodes), Degenerate()}, scheme)
}

// LookbackMass bins by lookback time (Gyr) and stellar mass. The lookback edges are converted to
// redshift edges with cosmo; keys keep the lookback values: lookt_<lo>_<hi>__m_<lo>_<hi>_<kind>.
func (b *Binner) LookbackMass(cosmo Cosmology, tnodes, mnodes []float64, scheme population.Scheme, linearMass bool) (Mapping, error) {
	if err := validateEdges(tnodes); err != nil {
		return nil, catalog.NewConfigurationError(catalog.OpBinning, ColumnRedshift, "lookback edges: "+err.Error())
	}

	age := cosmo.AgeOfUniverse()
	znodes := make([]float64, len(tnodes))
	for i, t := range tnodes {
		if t < 0 || t >= age {
			return nil, catalog.NewConfigurationError(catalog.OpBinning, ColumnRedshift,
				fmt.Sprintf("lookback time %g Gyr is outside [0, %.4g)", t, age))
		}
		z, err := cosmo.RedshiftAtLookbackTime(t)
		if err != nil {
			return nil, fmt.Errorf("lookback time %g Gyr: %w", t, err)
		}
		znodes[i] = z
	}

	lookback := redshiftAxis(znodes)
	lookback.Name = LookbackAxisName
	lookback.KeyEdges = tnodes
	return b.Bin([]Axis{lookback, massAxis(mnodes, linearMass)}, scheme)
}

// CriterionRanges adds a third axis over column with edges crange, for a single population:
// z_<lo>_<hi>__m_<lo>_<hi>__<column>_<lo>_<hi>_<kind>. Mass cells are compared in linear mass.
// replacement, when not nil, stands in for non-finite criterion values.
func (b *Binner) CriterionRanges(
	znodes, mnodes []float64, pop population.Population, column string, crange []float64, replacement *float64,
) (Mapping, error) {
	criterion := Range(column, column, crange)
	criterion.Replacement = replacement
	return b.Bin([]Axis{redshiftAxis(znodes), massAxis(mnodes, true), criterion}, population.Scheme{pop})
}

// CriterionThreshold splits every redshift-mass cell of a single population in two around
// threshold: z_…__m_…__<column>_ge_<t>_<kind> and z_…__m_…__<column>_lt_<t>_<kind>.
func (b *Binner) CriterionThreshold(
	znodes, mnodes []float64, pop population.Population, column string, threshold float64, replacement *float64,
) (Mapping, error) {
	criterion := Split(column, column, threshold)
	criterion.Replacement = replacement
	return b.Bin([]Axis{redshiftAxis(znodes), massAxis(mnodes, true), criterion}, population.Scheme{pop})
}

// ParentRedshift makes one bucket per parent group and redshift cell, regardless of population:
// z_<lo>_<hi>__sed_<parent>.
func (b *Binner) ParentRedshift(znodes []float64) (Mapping, error) {
	return b.Bin([]Axis{redshiftAxis(znodes), Distinct(ParentAxisName, ColumnParent)}, nil)
}

// Parents makes one bucket per parent group: sed_<parent>.
func (b *Binner) Parents() (Mapping, error) {
	return b.Bin([]Axis{Distinct(ParentAxisName, ColumnParent)}, nil)
}
