// Package classify assigns every catalog source a population label.
package classify

import (
	"fmt"
	"log/slog"
	"slices"

	"fieldcat/internal/catalog"
	"fieldcat/internal/classify/rule"
	"fieldcat/internal/population"
)

// Labeler produces a labeled copy of a catalog.
type Labeler interface {
	Classify(cat *catalog.Catalog) (*catalog.Catalog, error)
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithReplacement makes the classifier substitute value for NaN and ±Inf in column before any
// comparison. Without it a non-finite value in a compared column aborts the classification.
func WithReplacement(column string, value float64) Option {
	return func(c *Classifier) {
		c.replacements[column] = value
	}
}

// Classifier applies one rule set to every source of a catalog.
// It holds the uncompiled rules: they are compiled against the columns of each catalog it labels.
type Classifier struct {
	rules        []rule.Rule
	scheme       population.Scheme
	replacements map[string]float64
}

// New creates a classifier for the given rules. scheme names the labels the rules produce; it is
// not used for matching and may be nil.
func New(rules []rule.Rule, scheme population.Scheme, opts ...Option) *Classifier {
	c := &Classifier{
		rules:        slices.Clone(rules),
		scheme:       scheme,
		replacements: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromPreset creates a classifier from a named preset.
func FromPreset(p Preset, opts ...Option) *Classifier {
	return New(p.Rules, p.Scheme, opts...)
}

// Scheme returns the populations the classifier emits.
func (c *Classifier) Scheme() population.Scheme {
	return c.scheme
}

// Classify returns a copy of cat whose sfg column holds one label per source.
//
// The labels are built in full before the column is attached: on any error no column is written
// and cat is left as it was. Classifying an already labeled catalog replaces its sfg column.
func (c *Classifier) Classify(cat *catalog.Catalog) (*catalog.Catalog, error) {
	set, err := rule.Compile(c.rules, cat.Columns())
	if err != nil {
		return nil, err
	}

	columns := make(map[string][]float64, len(set.Columns()))
	for _, name := range set.Columns() {
		var replacement *float64
		if v, ok := c.replacements[name]; ok {
			replacement = &v
		}
		values, err := cat.Finite(catalog.OpClassification, name, replacement)
		if err != nil {
			return nil, err
		}
		columns[name] = values
	}

	labels := make([]float64, cat.Len())
	counts := make(map[int]int)
	rec := make(catalog.Record, len(columns))
	for i := range labels {
		for name, values := range columns {
			rec[name] = values[i]
		}
		label, err := set.Evaluate(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d (id %d): %w", i, cat.IDs()[i], err)
		}
		labels[i] = float64(label)
		counts[label]++
	}

	labeled, err := cat.WithColumn(catalog.LabelColumn, labels)
	if err != nil {
		return nil, err
	}

	for _, label := range set.Labels() {
		kind, _ := c.scheme.Kind(label)
		slog.Info("Classified population", "label", label, "kind", kind, "sources", counts[label])
	}
	return labeled, nil
}
