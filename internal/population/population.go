// Package population names the source populations produced by the classifier and binds the
// integer labels of a classification scheme to them. The binner derives bucket key suffixes from the
// same table, so a label means the same thing on both sides.
package population

import (
	"fmt"
	"regexp"
	"sort"
)

// Label is the integer population code stored in the sfg column.
type Label = int

const (
	// Quiescent is the outcome of the UVJ two-color fallback.
	Quiescent Label = 0
	// StarForming is the background label of every source no rule claims.
	StarForming Label = 1
)

// Kind is the semantic name of a population; it doubles as the bucket key suffix.
type Kind string

const (
	KindQuiescent   Kind = "qt"
	KindStarForming Kind = "sf"
	KindAGN         Kind = "agn"
	KindDusty       Kind = "dst"
	KindStarburst   Kind = "sb"
	KindLocal       Kind = "loc"
)

// Suffix returns the bucket key suffix for the kind, "_<kind>", or "" for an empty kind.
func (k Kind) Suffix() string {
	if k == "" {
		return ""
	}
	return "_" + string(k)
}

// Population binds a label to its kind.
type Population struct {
	Label Label `mapstructure:"label" yaml:"label" json:"label"`
	Kind  Kind  `mapstructure:"kind" yaml:"kind" json:"kind"`
}

// Scheme is the set of populations a classifier can emit.
type Scheme []Population

// Base is the scheme every classification emits: quiescent and star-forming.
var Base = Scheme{
	{Label: Quiescent, Kind: KindQuiescent},
	{Label: StarForming, Kind: KindStarForming},
}

// With returns a copy of the base scheme extended by extra populations.
func With(extra ...Population) Scheme {
	s := make(Scheme, 0, len(Base)+len(extra))
	s = append(s, Base...)
	return append(s, extra...)
}

// Kind returns the kind bound to label.
func (s Scheme) Kind(label Label) (Kind, bool) {
	for _, p := range s {
		if p.Label == label {
			return p.Kind, true
		}
	}
	return "", false
}

// Find returns the population of the given kind.
func (s Scheme) Find(kind Kind) (Population, bool) {
	for _, p := range s {
		if p.Kind == kind {
			return p, true
		}
	}
	return Population{}, false
}

// Labels returns the labels in ascending order.
func (s Scheme) Labels() []Label {
	labels := make([]Label, len(s))
	for i, p := range s {
		labels[i] = p.Label
	}
	sort.Ints(labels)
	return labels
}

// negativeValue matches the key encoding of a negative number, e.g. "n1" or "n0p5"; a kind must
// not, or the suffix would be read back as a value.
var negativeValue = regexp.MustCompile(`^n[0-9]+(p[0-9]+)?$`)

// Validate checks that labels and kinds are unique and that kinds can be used as key suffixes.
func (s Scheme) Validate() error {
	labels := make(map[Label]bool, len(s))
	kinds := make(map[Kind]bool, len(s))
	for _, p := range s {
		if labels[p.Label] {
			return fmt.Errorf("population label %d is bound twice", p.Label)
		}
		labels[p.Label] = true
		if kinds[p.Kind] {
			return fmt.Errorf("population kind %q is bound twice", p.Kind)
		}
		kinds[p.Kind] = true
		if p.Kind == "" || p.Kind[0] >= '0' && p.Kind[0] <= '9' {
			return fmt.Errorf("population kind %q must start with a letter", p.Kind)
		}
		for _, r := range p.Kind {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return fmt.Errorf("population kind %q: only letters and digits are allowed", p.Kind)
			}
		}
		if negativeValue.MatchString(string(p.Kind)) {
			return fmt.Errorf("population kind %q reads as a key value", p.Kind)
		}
	}
	return nil
}
