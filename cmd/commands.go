package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldcat/internal/analysis"
	"fieldcat/internal/binning"
	"fieldcat/internal/catalog"
	"fieldcat/internal/classify"
	"fieldcat/internal/classify/rule"
	"fieldcat/internal/configuration"
	"fieldcat/internal/cosmology"
	"fieldcat/internal/dataset"
	"fieldcat/internal/results"
	"fieldcat/internal/server"

	"github.com/spf13/cobra"
)

var (
	outPath string

	classifyCmd = &cobra.Command{
		Use:   "classify",
		Short: "Label every catalog source with its population and write the labeled catalog as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := loadAndClassify(config)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return cat.WriteCSV(out, config.Catalog.IDColumn)
		},
	}

	binCmd = &cobra.Command{
		Use:   "bin",
		Short: "Classify the catalog, run every binning plan and export the buckets to the dataset file",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.RequireDataset()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := results.NewRepository(config.Results.Depth, config.Results.Ttl)
			_, stored, err := runPlans(cmd.Context(), config, repo)
			if err != nil {
				return err
			}
			return export(config, stored)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Classify the catalog, run every binning plan and serve the buckets over HTTP",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.RequireServer()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, appCancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer appCancel()

			repo := results.NewRepository(config.Results.Depth, config.Results.Ttl)
			cat, stored, err := runPlans(appCtx, config, repo)
			if err != nil {
				return err
			}
			if config.Dataset.File != "" {
				if err := export(config, stored); err != nil {
					return err
				}
			}
			go repo.Serve()
			defer repo.Stop()

			srv := server.NewServer(config.Server.Address, config.Server.ReadTimeout, config.Server.WriteTimeout, repo, cat)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			slog.Info("Server listening " + config.Server.Address)

			select {
			case <-appCtx.Done():
			case err := <-errCh:
				return fmt.Errorf("server: %w", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("Server shutdown", "error", err)
			}
			slog.Info("Server stopped")
			return nil
		},
	}
)

func init() {
	classifyCmd.Flags().StringVarP(&outPath, "out", "o", "", "labeled catalog file (stdout when empty)")
}

// newClassifier builds the classifier selected by the classification section: a preset or a rules file.
func newClassifier(c configuration.ClassificationConfig) (*classify.Classifier, error) {
	opts := make([]classify.Option, 0, len(c.Replacements))
	for _, r := range c.Replacements {
		opts = append(opts, classify.WithReplacement(r.Column, r.Value))
	}

	if c.RulesFile != "" {
		rules, err := rule.LoadFromFile(c.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("unable to load rules: %w", err)
		}
		return classify.New(rules, c.Scheme(), opts...), nil
	}

	preset, err := classify.PresetByName(c.Preset, c.Params)
	if err != nil {
		return nil, err
	}
	return classify.FromPreset(preset, opts...), nil
}

func newCosmology(c configuration.CosmologyConfig) (*cosmology.LambdaCDM, error) {
	if c.IsDefault() {
		return cosmology.Planck15(), nil
	}
	return cosmology.New(c.H0, c.Om0, c.Ode0)
}

// loadAndClassify reads the catalog and returns its labeled copy with the classifier that labeled it.
func loadAndClassify(config *configuration.AppConfig) (*catalog.Catalog, *classify.Classifier, error) {
	cat, err := catalog.LoadCSV(config.Catalog.Path, config.Catalog.IDColumn)
	if err != nil {
		return nil, nil, err
	}

	classifier, err := newClassifier(config.Classification)
	if err != nil {
		return nil, nil, err
	}
	labeled, err := classifier.Classify(cat)
	if err != nil {
		return nil, nil, err
	}
	return labeled, classifier, nil
}

// runPlans classifies the catalog and runs the configured plans into repo.
// It returns the labeled catalog and the stored mapping of every plan.
func runPlans(ctx context.Context, config *configuration.AppConfig, repo *results.Repository) (*catalog.Catalog, map[string]binning.Mapping, error) {
	cat, classifier, err := loadAndClassify(config)
	if err != nil {
		return nil, nil, err
	}
	cosmo, err := newCosmology(config.Cosmology)
	if err != nil {
		return nil, nil, err
	}
	stored, err := analysis.New(cat, classifier.Scheme(), cosmo, repo).Run(ctx, config.Binning.Plans)
	if err != nil {
		return nil, nil, err
	}
	return cat, stored, nil
}

// export writes the stored mapping of every plan to the dataset file, in plan order.
func export(config *configuration.AppConfig, stored map[string]binning.Mapping) error {
	var ds dataset.BucketRepository = dataset.NewJSONBucketRepository(
		config.Dataset.File,
		config.Dataset.MaxSize,
		config.Dataset.MaxBackups,
		config.Dataset.Compress,
		slog.String("run_id", runID),
	)
	for _, plan := range config.Binning.Plans {
		if err := ds.Export(plan.Name, stored[plan.Name]); err != nil {
			return errors.Join(err, ds.Close())
		}
	}
	if err := ds.Close(); err != nil {
		return err
	}
	slog.Info("Buckets exported", "file", config.Dataset.File, "plans", len(config.Binning.Plans))
	return nil
}
