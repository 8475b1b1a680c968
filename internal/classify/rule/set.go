package rule

import (
	"fmt"
	"slices"
	"sort"

	"fieldcat/internal/catalog"
	"fieldcat/internal/population"
)

// Set is a compiled, ordered rule set. Rules are kept by descending label, which is the order they
// are tried in: when two rules could fire for the same source, the higher label wins regardless of
// the order the rules were written in.
type Set struct {
	rules   []Rule
	columns []string
}

// Compile validates rules against the catalog columns, compiles their expressions and orders them
// for evaluation. The caller's slice is not modified.
//
// Errors are ConfigurationErrors:
//   - a condition or expression references an unknown column
//   - more than one rule is fallback-only
//   - a fallback column (rf_U_V, z_peak) is missing from the catalog
//
// rf_V_J is read only when the catalog holds it; a record that passes the U−V gate without it
// fails in Evaluate.
func Compile(rules []Rule, columns []string) (*Set, error) {
	known := make(map[string]bool, len(columns))
	for _, name := range columns {
		known[name] = true
	}
	for _, name := range FallbackColumns {
		if !known[name] {
			return nil, catalog.NewConfigurationError(catalog.OpClassification, name, "required by the two-color fallback")
		}
	}

	env, err := NewCatalogEnv(columns)
	if err != nil {
		return nil, err
	}

	set := Set{rules: make([]Rule, len(rules))}
	fallbackOnly := 0
	for i := range rules {
		set.rules[i] = rules[i]
		set.rules[i].Conditions = slices.Clone(rules[i].Conditions)
		set.rules[i].columns = nil

		if set.rules[i].FallbackOnly() {
			fallbackOnly++
			if fallbackOnly > 1 {
				return nil, catalog.NewConfigurationError(catalog.OpClassification, "",
					fmt.Sprintf("rule %d: only one rule may omit explicit criteria", rules[i].Label))
			}
			continue
		}

		if err := set.rules[i].Init(env, known); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(set.rules, func(a, b int) bool {
		return set.rules[a].Label > set.rules[b].Label
	})

	seen := make(map[string]bool)
	for _, r := range set.rules {
		for _, name := range r.columns {
			if !seen[name] {
				seen[name] = true
				set.columns = append(set.columns, name)
			}
		}
	}
	for _, name := range append(slices.Clone(FallbackColumns), ColumnVJ) {
		if !seen[name] && known[name] {
			seen[name] = true
			set.columns = append(set.columns, name)
		}
	}

	return &set, nil
}

// Evaluate returns the population label of one record.
//
// Rules are tried by descending label; the first one that fires sets the label. A record no rule
// claims keeps the background label 1, and only that label may still be turned into 0 by the UVJ
// two-color fallback.
func (s *Set) Evaluate(rec catalog.Record) (int, error) {
	label := population.StarForming
	for i := range s.rules {
		r := &s.rules[i]
		if r.FallbackOnly() {
			continue
		}
		matched, err := r.Eval(rec)
		if err != nil {
			return 0, err
		}
		if matched {
			label = r.Label
			break
		}
	}

	if label != population.StarForming {
		return label, nil
	}

	uv, err := value(rec, ColumnUV)
	if err != nil {
		return 0, err
	}
	z, err := value(rec, ColumnRedshift)
	if err != nil {
		return 0, err
	}
	if !PassesColorGate(uv) {
		return label, nil
	}
	vj, err := value(rec, ColumnVJ)
	if err != nil {
		return 0, err
	}
	if Quiescent(uv, vj, z) {
		return population.Quiescent, nil
	}
	return label, nil
}

// Rules returns the compiled rules in evaluation order.
func (s *Set) Rules() []Rule {
	return s.rules
}

// Columns returns every catalog column read while evaluating a record.
func (s *Set) Columns() []string {
	return s.columns
}

// Labels returns the labels the set can produce, ascending, including 0 and 1.
func (s *Set) Labels() []int {
	seen := map[int]bool{population.Quiescent: true, population.StarForming: true}
	labels := []int{population.Quiescent, population.StarForming}
	for _, r := range s.rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}
	sort.Ints(labels)
	return labels
}
