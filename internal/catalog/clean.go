package catalog

import "math"

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NonFinite returns the first row of column name holding NaN or ±Inf.
// found is false when the column is clean or absent.
func (c *Catalog) NonFinite(name string) (row int, value float64, found bool) {
	values, ok := c.columns[name]
	if !ok {
		return 0, 0, false
	}
	for i, v := range values {
		if !IsFinite(v) {
			return i, v, true
		}
	}
	return 0, 0, false
}

// Clean returns a copy of values with every NaN and ±Inf replaced by replacement,
// and the number of replaced values. The input is left untouched.
func Clean(values []float64, replacement float64) ([]float64, int) {
	cleaned := make([]float64, len(values))
	replaced := 0
	for i, v := range values {
		if IsFinite(v) {
			cleaned[i] = v
			continue
		}
		cleaned[i] = replacement
		replaced++
	}
	return cleaned, replaced
}

// Finite returns the values of column name for a comparison made by op.
// With a nil replacement a non-finite value is a DataError; otherwise a cleaned copy is returned.
func (c *Catalog) Finite(op Operation, name string, replacement *float64) ([]float64, error) {
	values, ok := c.columns[name]
	if !ok {
		return nil, NewConfigurationError(op, name, "unknown column")
	}
	if replacement != nil {
		cleaned, _ := Clean(values, *replacement)
		return cleaned, nil
	}
	for i, v := range values {
		if !IsFinite(v) {
			return nil, NewDataError(op, name, i, v)
		}
	}
	return values, nil
}
