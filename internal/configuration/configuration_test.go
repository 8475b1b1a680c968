package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fieldcat/internal/analysis"
	"fieldcat/internal/population"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
logger:
  level: DEBUG
catalog:
  path: /data/uds.csv
classification:
  preset: sf_qt_agn
  params:
    fcut: 25
  replacements:
    - column: F_ratio
      value: 0
cosmology:
  h0: 70
  om0: 0.3
  ode0: 0.7
binning:
  plans:
    - name: mz
      kind: mass_redshift
      znodes: [0, 1, 2]
      mnodes: [8, 10, 12]
      populations: [sf, agn]
    - name: lir
      kind: criterion_threshold
      znodes: [0, 1]
      mnodes: [8, 12]
      criterion:
        column: lir
        threshold: 11
        replacement: 0
results:
  ttl: 1h
dataset:
  file: /tmp/buckets.jsonl
  compress: true
server:
  address: ":8080"
  write_timeout: 30s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Full(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", config.Logger.Level)
	assert.Equal(t, 100, config.Logger.MaxSize)
	assert.Equal(t, "/data/uds.csv", config.Catalog.Path)
	assert.Equal(t, "id", config.Catalog.IDColumn)

	assert.Equal(t, "sf_qt_agn", config.Classification.Preset)
	assert.Equal(t, map[string]float64{"fcut": 25}, config.Classification.Params)
	assert.Equal(t, []Replacement{{Column: "F_ratio", Value: 0}}, config.Classification.Replacements)

	assert.Equal(t, CosmologyConfig{H0: 70, Om0: 0.3, Ode0: 0.7}, config.Cosmology)
	assert.False(t, config.Cosmology.IsDefault())

	require.Len(t, config.Binning.Plans, 2)
	mz := config.Binning.Plans[0]
	assert.Equal(t, analysis.KindMassRedshift, mz.Kind)
	assert.Equal(t, []float64{0, 1, 2}, mz.ZNodes)
	assert.Equal(t, []population.Kind{population.KindStarForming, population.KindAGN}, mz.Populations)
	lir := config.Binning.Plans[1]
	require.NotNil(t, lir.Criterion.Threshold)
	assert.Equal(t, 11.0, *lir.Criterion.Threshold)
	require.NotNil(t, lir.Criterion.Replacement)
	assert.Equal(t, 0.0, *lir.Criterion.Replacement)

	assert.Equal(t, 10, config.Results.Depth)
	assert.Equal(t, time.Hour, config.Results.Ttl)
	assert.Equal(t, 100, config.Dataset.MaxSize)
	assert.Equal(t, 20, config.Dataset.MaxBackups)
	assert.True(t, config.Dataset.Compress)
	assert.Equal(t, 3*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)

	assert.NoError(t, config.RequireServer())
	assert.NoError(t, config.RequireDataset())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("FIELDCAT_CATALOG_PATH", "/data/cosmos.csv")
	config, err := LoadConfig(writeConfig(t, fullConfig))
	require.NoError(t, err)
	assert.Equal(t, "/data/cosmos.csv", config.Catalog.Path)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "logger:\n  level: info\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.path: must be specified")
}

func validConfig() AppConfig {
	return AppConfig{
		Logger:         LoggerConfig{Level: "info"},
		Catalog:        CatalogConfig{Path: "catalog.csv"},
		Classification: ClassificationConfig{Preset: "sf_qt"},
	}
}

func TestAppConfig_Validate(t *testing.T) {
	threshold := 11.0
	cases := []struct {
		name   string
		modify func(c *AppConfig)
		err    string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"no level", func(c *AppConfig) { c.Logger.Level = "" }, "logger.level: must be specified"},
		{"bad level", func(c *AppConfig) { c.Logger.Level = "trace" }, "logger.level: unsupported level 'trace'"},
		{"no catalog", func(c *AppConfig) { c.Catalog.Path = "" }, "catalog.path: must be specified"},
		{"no classification", func(c *AppConfig) { c.Classification.Preset = "" }, "classification: preset or rules_file must be specified"},
		{"preset and rules", func(c *AppConfig) { c.Classification.RulesFile = "rules.yaml" }, "mutually exclusive"},
		{"populations with preset", func(c *AppConfig) {
			c.Classification.Populations = []population.Population{{Label: 2, Kind: "agn"}}
		}, "classification.populations: only used with rules_file"},
		{"params with rules", func(c *AppConfig) {
			c.Classification = ClassificationConfig{RulesFile: "rules.yaml", Params: map[string]float64{"fcut": 1}}
		}, "classification.params: only used with preset"},
		{"reused label", func(c *AppConfig) {
			c.Classification = ClassificationConfig{
				RulesFile:   "rules.yaml",
				Populations: []population.Population{{Label: 1, Kind: "agn"}},
			}
		}, "classification.populations: population label 1 is bound twice"},
		{"unnamed replacement", func(c *AppConfig) {
			c.Classification.Replacements = []Replacement{{Value: 1}}
		}, "classification.replacements[0].column: must be specified"},
		{"bad h0", func(c *AppConfig) { c.Cosmology = CosmologyConfig{H0: -1, Om0: 0.3} }, "cosmology.h0: must be positive"},
		{"bad plan", func(c *AppConfig) {
			c.Binning.Plans = []analysis.Plan{{Name: "mz", Kind: analysis.KindMassRedshift, ZNodes: []float64{0, 1}}}
		}, "binning.plans[0].mnodes"},
		{"duplicate plan", func(c *AppConfig) {
			plan := analysis.Plan{Name: "p", Kind: analysis.KindParents}
			c.Binning.Plans = []analysis.Plan{plan, plan}
		}, `binning.plans[1].name: duplicate plan "p"`},
		{"criterion plan", func(c *AppConfig) {
			c.Binning.Plans = []analysis.Plan{{
				Name: "lir", Kind: analysis.KindCriterionThreshold,
				ZNodes: []float64{0, 1}, MNodes: []float64{8, 12},
				Criterion: analysis.Criterion{Column: "lir", Threshold: &threshold},
			}}
		}, ""},
		{"negative depth", func(c *AppConfig) { c.Results.Depth = -1 }, "results.depth: must not be negative"},
		{"negative ttl", func(c *AppConfig) { c.Results.Ttl = -time.Second }, "results.ttl: must not be negative"},
		{"negative dataset size", func(c *AppConfig) { c.Dataset.MaxSize = -1 }, "dataset.max_size"},
		{"negative timeout", func(c *AppConfig) { c.Server.ReadTimeout = -time.Second }, "server.read_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := validConfig()
			tc.modify(&config)
			err := config.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestAppConfig_Require(t *testing.T) {
	config := validConfig()
	require.NoError(t, config.Validate())

	assert.EqualError(t, config.RequireServer(), "server.address: must be specified")
	assert.EqualError(t, config.RequireDataset(), "dataset.file: must be specified")

	config.Dataset.File = "buckets.jsonl"
	assert.EqualError(t, config.RequireDataset(), "binning.plans: must be specified")
}

func TestClassificationConfig_Scheme(t *testing.T) {
	c := ClassificationConfig{
		RulesFile:   "rules.yaml",
		Populations: []population.Population{{Label: 2, Kind: population.KindAGN}},
	}
	require.NoError(t, c.Validate())
	kind, ok := c.Scheme().Kind(2)
	assert.True(t, ok)
	assert.Equal(t, population.KindAGN, kind)
	assert.Equal(t, []int{0, 1, 2}, c.Scheme().Labels())
}
