package rule

import (
	"errors"
	"fmt"
)

// Condition is a single comparison over one catalog column. Bounds are exclusive:
//
//	gt only:   v > gt
//	lt only:   v < lt
//	gt and lt: gt < v < lt
//	eq only:   v == eq
type Condition struct {
	// Column: catalog column the condition reads.
	Column string `yaml:"column"`
	// Gt: exclusive lower bound.
	Gt *float64 `yaml:"gt,omitempty"`
	// Lt: exclusive upper bound.
	Lt *float64 `yaml:"lt,omitempty"`
	// Eq: required value; cannot be combined with bounds.
	Eq *float64 `yaml:"eq,omitempty"`
}

// Above builds the condition v > lo.
func Above(column string, lo float64) Condition {
	return Condition{Column: column, Gt: &lo}
}

// Below builds the condition v < hi.
func Below(column string, hi float64) Condition {
	return Condition{Column: column, Lt: &hi}
}

// Between builds the condition lo < v < hi.
func Between(column string, lo, hi float64) Condition {
	return Condition{Column: column, Gt: &lo, Lt: &hi}
}

// Equal builds the condition v == value.
func Equal(column string, value float64) Condition {
	return Condition{Column: column, Eq: &value}
}

// Validate checks that the condition has a usable shape.
func (c Condition) Validate() error {
	if c.Column == "" {
		return errors.New("condition without column")
	}
	switch {
	case c.Eq != nil && (c.Gt != nil || c.Lt != nil):
		return errors.New("eq cannot be combined with gt or lt")
	case c.Eq == nil && c.Gt == nil && c.Lt == nil:
		return errors.New("condition needs gt, lt or eq")
	case c.Gt != nil && c.Lt != nil && *c.Gt >= *c.Lt:
		return fmt.Errorf("empty interval: gt %g is not below lt %g", *c.Gt, *c.Lt)
	}
	return nil
}

// Match reports whether v satisfies the condition.
func (c Condition) Match(v float64) bool {
	switch {
	case c.Eq != nil:
		return v == *c.Eq
	case c.Gt != nil && c.Lt != nil:
		return v > *c.Gt && v < *c.Lt
	case c.Lt != nil:
		return v < *c.Lt
	case c.Gt != nil:
		return v > *c.Gt
	}
	return false
}

// String renders the condition the way it reads in a rule file.
func (c Condition) String() string {
	switch {
	case c.Eq != nil:
		return fmt.Sprintf("%s == %g", c.Column, *c.Eq)
	case c.Gt != nil && c.Lt != nil:
		return fmt.Sprintf("%g < %s < %g", *c.Gt, c.Column, *c.Lt)
	case c.Lt != nil:
		return fmt.Sprintf("%s < %g", c.Column, *c.Lt)
	case c.Gt != nil:
		return fmt.Sprintf("%s > %g", c.Column, *c.Gt)
	}
	return c.Column + " ?"
}
