package analysis

import (
	"errors"
	"fmt"

	"fieldcat/internal/population"
)

// Kind selects the binning a plan runs.
type Kind string

const (
	KindMassRedshift       Kind = "mass_redshift"
	KindRedshift           Kind = "redshift"
	KindLookbackMass       Kind = "lookback_mass"
	KindCriterionRanges    Kind = "criterion_ranges"
	KindCriterionThreshold Kind = "criterion_threshold"
	KindParentRedshift     Kind = "parent_redshift"
	KindParents            Kind = "parents"
)

// Criterion configures the third axis of the criterion plans.
type Criterion struct {
	// Column: catalog column binned as the third axis.
	Column string `mapstructure:"column" yaml:"column"`
	// Range: edges for criterion_ranges.
	Range []float64 `mapstructure:"range" yaml:"range"`
	// Threshold: split value for criterion_threshold.
	Threshold *float64 `mapstructure:"threshold" yaml:"threshold"`
	// Replacement: value substituted for NaN/Inf in Column. Unset means non-finite values are an error.
	Replacement *float64 `mapstructure:"replacement" yaml:"replacement"`
}

// Plan is one named binning of the classified catalog.
type Plan struct {
	Name string `mapstructure:"name" yaml:"name"`
	Kind Kind   `mapstructure:"kind" yaml:"kind"`

	ZNodes     []float64 `mapstructure:"znodes" yaml:"znodes"`
	MNodes     []float64 `mapstructure:"mnodes" yaml:"mnodes"`
	TNodes     []float64 `mapstructure:"tnodes" yaml:"tnodes"`
	LinearMass bool      `mapstructure:"linear_mass" yaml:"linear_mass"`

	// Populations restricts the buckets to these kinds of the classification scheme; empty means all.
	// The criterion plans bin exactly one population, star-forming unless set.
	Populations []population.Kind `mapstructure:"populations" yaml:"populations"`
	Criterion   Criterion         `mapstructure:"criterion" yaml:"criterion"`

	// Initialize replaces the stored mapping of the plan; otherwise buckets accumulate into it.
	Initialize bool `mapstructure:"initialize" yaml:"initialize"`
}

// Validate checks that the plan carries every input its kind needs. Edge values themselves are
// validated against the catalog when the plan runs.
func (p Plan) Validate() error {
	if p.Name == "" {
		return errors.New("name: must be specified")
	}

	need := func(field string, nodes []float64) error {
		if len(nodes) < 2 {
			return fmt.Errorf("%s: at least 2 edges are required for kind %s", field, p.Kind)
		}
		return nil
	}

	switch p.Kind {
	case KindMassRedshift:
		return errors.Join(need("znodes", p.ZNodes), need("mnodes", p.MNodes))
	case KindRedshift, KindParentRedshift:
		return need("znodes", p.ZNodes)
	case KindLookbackMass:
		return errors.Join(need("tnodes", p.TNodes), need("mnodes", p.MNodes))
	case KindCriterionRanges, KindCriterionThreshold:
		if err := errors.Join(need("znodes", p.ZNodes), need("mnodes", p.MNodes)); err != nil {
			return err
		}
		if p.Criterion.Column == "" {
			return errors.New("criterion.column: must be specified")
		}
		if len(p.Populations) > 1 {
			return fmt.Errorf("populations: kind %s bins a single population, got %d", p.Kind, len(p.Populations))
		}
		if p.Kind == KindCriterionRanges {
			return need("criterion.range", p.Criterion.Range)
		}
		if p.Criterion.Threshold == nil {
			return errors.New("criterion.threshold: must be specified")
		}
		return nil
	case KindParents:
		return nil
	default:
		return fmt.Errorf("kind: unknown plan kind %q", p.Kind)
	}
}
