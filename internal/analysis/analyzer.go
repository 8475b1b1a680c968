// Package analysis runs named binning plans over a classified catalog and stores their mappings.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fieldcat/internal/binning"
	"fieldcat/internal/catalog"
	"fieldcat/internal/population"
	"fieldcat/internal/results"

	"golang.org/x/sync/errgroup"
)

// Analyzer bins one classified catalog according to plans.
type Analyzer struct {
	binner *binning.Binner
	scheme population.Scheme
	cosmo  binning.Cosmology
	repo   *results.Repository
}

// New creates an analyzer. scheme is the scheme of the classification that labeled cat.
// cosmo is only used by lookback plans and may be nil otherwise.
func New(cat *catalog.Catalog, scheme population.Scheme, cosmo binning.Cosmology, repo *results.Repository) *Analyzer {
	return &Analyzer{
		binner: binning.New(cat),
		scheme: scheme,
		cosmo:  cosmo,
		repo:   repo,
	}
}

// Run bins every plan concurrently, each into its own mapping, then merges the mappings into the
// results repository one at a time in plan order. The first failing plan cancels the plans that
// have not started yet and nothing is stored.
//
// The returned map holds the stored mapping of every plan name after the merge.
func (a *Analyzer) Run(ctx context.Context, plans []Plan) (map[string]binning.Mapping, error) {
	mappings := make([]binning.Mapping, len(plans))

	g, gCtx := errgroup.WithContext(ctx)
	for i, plan := range plans {
		i, plan := i, plan
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			m, err := a.execute(plan)
			if err != nil {
				return fmt.Errorf("plan %q: %w", plan.Name, err)
			}
			mappings[i] = m
			slog.Debug("Plan binned", "plan", plan.Name, "kind", plan.Kind, "duration", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stored := make(map[string]binning.Mapping, len(plans))
	for i, plan := range plans {
		merged := a.repo.Merge(plan.Name, mappings[i], plan.Initialize)
		stored[plan.Name] = merged
		slog.Info("Plan stored", "plan", plan.Name, "kind", plan.Kind, "initialize", plan.Initialize,
			"buckets", len(merged), "sources", merged.Count())
	}
	return stored, nil
}

func (a *Analyzer) execute(plan Plan) (binning.Mapping, error) {
	if err := plan.Validate(); err != nil {
		return nil, catalog.NewConfigurationError(catalog.OpBinning, "", err.Error())
	}

	switch plan.Kind {
	case KindMassRedshift:
		pops, err := a.populations(plan)
		if err != nil {
			return nil, err
		}
		return a.binner.MassRedshift(plan.ZNodes, plan.MNodes, pops, plan.LinearMass)

	case KindRedshift:
		pops, err := a.populations(plan)
		if err != nil {
			return nil, err
		}
		return a.binner.Redshift(plan.ZNodes, pops)

	case KindLookbackMass:
		if a.cosmo == nil {
			return nil, catalog.NewConfigurationError(catalog.OpBinning, "", "lookback plans need a cosmology")
		}
		pops, err := a.populations(plan)
		if err != nil {
			return nil, err
		}
		return a.binner.LookbackMass(a.cosmo, plan.TNodes, plan.MNodes, pops, plan.LinearMass)

	case KindCriterionRanges, KindCriterionThreshold:
		pop, err := a.single(plan)
		if err != nil {
			return nil, err
		}
		c := plan.Criterion
		if plan.Kind == KindCriterionRanges {
			return a.binner.CriterionRanges(plan.ZNodes, plan.MNodes, pop, c.Column, c.Range, c.Replacement)
		}
		return a.binner.CriterionThreshold(plan.ZNodes, plan.MNodes, pop, c.Column, *c.Threshold, c.Replacement)

	case KindParentRedshift:
		return a.binner.ParentRedshift(plan.ZNodes)

	default:
		return a.binner.Parents()
	}
}

// populations returns the part of the scheme the plan asks for.
func (a *Analyzer) populations(plan Plan) (population.Scheme, error) {
	if len(plan.Populations) == 0 {
		return a.scheme, nil
	}
	pops := make(population.Scheme, 0, len(plan.Populations))
	for _, kind := range plan.Populations {
		pop, ok := a.scheme.Find(kind)
		if !ok {
			return nil, catalog.NewConfigurationError(catalog.OpBinning, catalog.LabelColumn,
				fmt.Sprintf("population %q is not produced by the classification", kind))
		}
		pops = append(pops, pop)
	}
	return pops, nil
}

func (a *Analyzer) single(plan Plan) (population.Population, error) {
	if len(plan.Populations) == 0 {
		plan.Populations = []population.Kind{population.KindStarForming}
	}
	pops, err := a.populations(plan)
	if err != nil {
		return population.Population{}, err
	}
	return pops[0], nil
}
