package rule

import (
	"fmt"
	"regexp"

	"fieldcat/internal/catalog"

	"github.com/google/cel-go/cel"
)

// Rule assigns a population label to the sources that satisfy all of its conditions and, when set,
// its When expression. A rule without conditions and without When is fallback-only: it never fires
// during the scan and only records that its label comes from the two-color cut.
type Rule struct {
	// Label: population label assigned when the rule fires.
	Label int `yaml:"label"`
	// Name: population name, informational.
	Name string `yaml:"name,omitempty"`
	// Conditions: column comparisons, all of which must hold.
	Conditions []Condition `yaml:"conditions,omitempty"`
	// When: optional CEL expression over catalog columns, ANDed with Conditions.
	// Must return a boolean value.
	When string `yaml:"when,omitempty"`

	// program: compiled When expression, nil when When is empty.
	program cel.Program
	// columns: every catalog column the rule reads.
	columns []string
}

var identifier = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*`)

// FallbackOnly reports whether the rule carries no explicit criteria.
func (r *Rule) FallbackOnly() bool {
	return len(r.Conditions) == 0 && r.When == ""
}

// Init validates the conditions against the known columns and compiles the When expression into an
// executable CEL program using env. Errors are ConfigurationErrors naming the offending column where
// one can be identified.
func (r *Rule) Init(env *cel.Env, known map[string]bool) error {
	r.columns = r.columns[:0]
	seen := make(map[string]bool)

	for _, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return catalog.NewConfigurationError(catalog.OpClassification, c.Column,
				fmt.Sprintf("rule %d: %v", r.Label, err))
		}
		if !known[c.Column] {
			return catalog.NewConfigurationError(catalog.OpClassification, c.Column,
				fmt.Sprintf("rule %d: unknown column", r.Label))
		}
		if !seen[c.Column] {
			seen[c.Column] = true
			r.columns = append(r.columns, c.Column)
		}
	}

	if r.When == "" {
		r.program = nil
		return nil
	}

	ast, iss := env.Parse(r.When)
	if iss.Err() != nil {
		return catalog.NewConfigurationError(catalog.OpClassification, "",
			fmt.Sprintf("rule %d: %v", r.Label, iss.Err()))
	}

	checked, iss := env.Check(ast)
	if iss.Err() != nil {
		return catalog.NewConfigurationError(catalog.OpClassification, undeclared(r.When, known),
			fmt.Sprintf("rule %d: %v", r.Label, iss.Err()))
	}
	if checked.OutputType().String() != cel.BoolType.String() {
		return catalog.NewConfigurationError(catalog.OpClassification, "",
			fmt.Sprintf("rule %d: expression %q must return bool, returns %s", r.Label, r.When, checked.OutputType()))
	}

	var err error
	r.program, err = env.Program(checked)
	if err != nil {
		return catalog.NewConfigurationError(catalog.OpClassification, "", fmt.Sprintf("rule %d: %v", r.Label, err))
	}

	for _, name := range identifier.FindAllString(r.When, -1) {
		if known[name] && !seen[name] {
			seen[name] = true
			r.columns = append(r.columns, name)
		}
	}
	return nil
}

// Eval reports whether the record satisfies every condition and the When expression.
// Unlike a scoring rule, a failing expression is an error: a label must never be assigned by
// accident of an evaluation failure.
func (r *Rule) Eval(rec catalog.Record) (bool, error) {
	for _, c := range r.Conditions {
		v, err := value(rec, c.Column)
		if err != nil {
			return false, err
		}
		if !c.Match(v) {
			return false, nil
		}
	}

	if r.program == nil {
		return r.When == "" && len(r.Conditions) > 0, nil
	}

	result, _, err := r.program.Eval(map[string]any(rec))
	if err != nil {
		return false, fmt.Errorf("rule %d: %w", r.Label, err)
	}
	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %d: expression returned %T", r.Label, result.Value())
	}
	return matched, nil
}

// Columns returns the catalog columns the rule reads. Valid after Init.
func (r *Rule) Columns() []string {
	return r.columns
}

func value(rec catalog.Record, column string) (float64, error) {
	raw, ok := rec[column]
	if !ok {
		return 0, catalog.NewConfigurationError(catalog.OpClassification, column, "missing from record")
	}
	v, ok := raw.(float64)
	if !ok {
		return 0, catalog.NewConfigurationError(catalog.OpClassification, column, fmt.Sprintf("holds %T, want float64", raw))
	}
	return v, nil
}

// undeclared returns the first identifier of expr that is not a known column, which is the usual
// cause of a CEL check failure.
func undeclared(expr string, known map[string]bool) string {
	for _, name := range identifier.FindAllString(expr, -1) {
		switch name {
		case "true", "false", "null", "in", "int", "double", "uint", "string", "bool", "size", "has":
			continue
		}
		if !known[name] {
			return name
		}
	}
	return ""
}
