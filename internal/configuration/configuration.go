package configuration

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"fieldcat/internal/analysis"
	"fieldcat/internal/population"

	"github.com/spf13/viper"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger: logger component configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Catalog: input catalog
	Catalog CatalogConfig `mapstructure:"catalog"`
	// Classification: rules assigning population labels
	Classification ClassificationConfig `mapstructure:"classification"`
	// Cosmology: model used by the lookback-time plans
	Cosmology CosmologyConfig `mapstructure:"cosmology"`
	// Binning: binning plans
	Binning BinningConfig `mapstructure:"binning"`
	// Results: in-memory store of the plan mappings
	Results ResultsConfig `mapstructure:"results"`
	// Dataset: bucket export file
	Dataset DatasetConfig `mapstructure:"dataset"`
	// Server: HTTP server configuration
	Server ServerConfig `mapstructure:"server"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level: one of debug, info, warn, warning, error.
	// Value is case-insensitive but checked in lowercase.
	Level string `mapstructure:"level"`
	// File: log file path; stdout when empty.
	File string `mapstructure:"file"`
	// MaxSize: log file size in MB before rotation (default 100)
	MaxSize int `mapstructure:"max_size"`
	// MaxBackups: number of rotated log files kept (default 10)
	MaxBackups int `mapstructure:"max_backups"`
}

// CatalogConfig locates the source catalog.
type CatalogConfig struct {
	// Path: CSV file with a header row.
	Path string `mapstructure:"path"`
	// IDColumn: column holding the source identifiers (default "id").
	IDColumn string `mapstructure:"id_column"`
}

// ClassificationConfig selects either a preset or a rules file.
type ClassificationConfig struct {
	// Preset: preset name, e.g. "sf_qt_agn".
	Preset string `mapstructure:"preset"`
	// Params: preset parameter overrides, e.g. {fcut: 25}.
	Params map[string]float64 `mapstructure:"params"`
	// RulesFile: YAML rule list used instead of a preset.
	RulesFile string `mapstructure:"rules_file"`
	// Populations: labels emitted by the rules file on top of qt(0) and sf(1).
	Populations []population.Population `mapstructure:"populations"`
	// Replacements: value substituted for NaN/Inf per compared column.
	// A list rather than a map: viper lowercases map keys, column names are case-sensitive.
	Replacements []Replacement `mapstructure:"replacements"`
}

// Replacement substitutes Value for non-finite values of Column.
type Replacement struct {
	Column string  `mapstructure:"column"`
	Value  float64 `mapstructure:"value"`
}

// CosmologyConfig defines a Lambda-CDM model; Planck 2015 when H0 is zero.
type CosmologyConfig struct {
	H0   float64 `mapstructure:"h0"`
	Om0  float64 `mapstructure:"om0"`
	Ode0 float64 `mapstructure:"ode0"`
}

// BinningConfig lists the plans run by bin and serve.
type BinningConfig struct {
	Plans []analysis.Plan `mapstructure:"plans"`
}

// ResultsConfig defines the mapping store parameters.
type ResultsConfig struct {
	// Depth: number of snapshots kept per plan (default 10).
	Depth int `mapstructure:"depth"`
	// Ttl: plans not updated for longer are evicted; 0 keeps them forever.
	// Example: "5m", "1h", "24h".
	Ttl time.Duration `mapstructure:"ttl"`
}

// DatasetConfig defines the bucket export file
type DatasetConfig struct {
	// Dataset file path (optional for classify and serve)
	File string `mapstructure:"file"`
	// Maximal dataset file size in MB (default 100)
	MaxSize int `mapstructure:"max_size"`
	// Number of rotated dataset files (default 20)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress rotated files
	Compress bool `mapstructure:"compress"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address: address and port where the server will listen (e.g., ":8080").
	Address string `mapstructure:"address"`
	// ReadTimeout: default 3s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout: default 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Validate checks the correctness of the entire application configuration.
// Calls validation for each nested structure and returns the first detected error.
// Returns nil if the configuration is valid.
func (c *AppConfig) Validate() error {
	validators := []func() error{
		c.Logger.Validate,
		c.Catalog.Validate,
		c.Classification.Validate,
		c.Cosmology.Validate,
		c.Binning.Validate,
		c.Results.Validate,
		c.Dataset.Validate,
		c.Server.Validate,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the correctness of the logger configuration.
// Verifies that the log level is set and is one of the supported values.
// Supported values: debug, info, warn, warning, error (case-insensitive).
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	if l.MaxSize < 0 || l.MaxBackups < 0 {
		return errors.New("logger.max_size, logger.max_backups: must not be negative")
	}
	if l.MaxSize == 0 {
		l.MaxSize = 100
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = 10
	}

	return nil
}

// Validate checks that the catalog path is set.
func (c *CatalogConfig) Validate() error {
	if c.Path == "" {
		return errors.New("catalog.path: must be specified")
	}
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	return nil
}

// Validate checks that exactly one of preset and rules_file is set.
// Preset names and parameters are resolved by the classify package.
func (c *ClassificationConfig) Validate() error {
	switch {
	case c.Preset == "" && c.RulesFile == "":
		return errors.New("classification: preset or rules_file must be specified")
	case c.Preset != "" && c.RulesFile != "":
		return errors.New("classification: preset and rules_file are mutually exclusive")
	case c.Preset != "" && len(c.Populations) > 0:
		return errors.New("classification.populations: only used with rules_file")
	case c.RulesFile != "" && len(c.Params) > 0:
		return errors.New("classification.params: only used with preset")
	}

	if err := population.With(c.Populations...).Validate(); err != nil {
		return fmt.Errorf("classification.populations: %w", err)
	}

	for i, r := range c.Replacements {
		if r.Column == "" {
			return fmt.Errorf("classification.replacements[%d].column: must be specified", i)
		}
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return fmt.Errorf("classification.replacements[%d].value: must be finite", i)
		}
	}

	return nil
}

// Scheme returns the populations emitted by the rules file.
func (c *ClassificationConfig) Scheme() population.Scheme {
	return population.With(c.Populations...)
}

// Validate checks the cosmological parameters. All zero selects Planck 2015.
func (c *CosmologyConfig) Validate() error {
	if c.H0 == 0 && c.Om0 == 0 && c.Ode0 == 0 {
		return nil
	}
	if c.H0 <= 0 {
		return errors.New("cosmology.h0: must be positive")
	}
	if c.Om0 < 0 || c.Ode0 < 0 {
		return errors.New("cosmology.om0, cosmology.ode0: must not be negative")
	}
	return nil
}

// IsDefault reports whether no model was configured.
func (c *CosmologyConfig) IsDefault() bool {
	return c.H0 == 0 && c.Om0 == 0 && c.Ode0 == 0
}

// Validate checks every plan and the uniqueness of plan names.
func (b *BinningConfig) Validate() error {
	names := make(map[string]bool, len(b.Plans))
	for i, plan := range b.Plans {
		if err := plan.Validate(); err != nil {
			return fmt.Errorf("binning.plans[%d].%w", i, err)
		}
		if names[plan.Name] {
			return fmt.Errorf("binning.plans[%d].name: duplicate plan %q", i, plan.Name)
		}
		names[plan.Name] = true
	}
	return nil
}

// Validate results store parameters
func (r *ResultsConfig) Validate() error {
	if r.Depth < 0 {
		return errors.New("results.depth: must not be negative")
	}
	if r.Ttl < 0 {
		return errors.New("results.ttl: must not be negative")
	}
	if r.Depth == 0 {
		r.Depth = 10
	}
	return nil
}

// Validate dataset parameters
func (d *DatasetConfig) Validate() error {
	if d.MaxSize < 0 || d.MaxBackups < 0 {
		return errors.New("dataset.max_size, dataset.max_backups: must not be negative")
	}

	if d.MaxBackups == 0 {
		d.MaxBackups = 20
	}

	if d.MaxSize == 0 {
		d.MaxSize = 100
	}

	return nil
}

// Validate checks the correctness of the server configuration.
// The address is only required by the serve command, see RequireServer.
func (n *ServerConfig) Validate() error {
	if n.ReadTimeout < 0 || n.WriteTimeout < 0 {
		return errors.New("server.read_timeout, server.write_timeout: must not be negative")
	}
	if n.ReadTimeout == 0 {
		n.ReadTimeout = 3 * time.Second
	}
	if n.WriteTimeout == 0 {
		n.WriteTimeout = 10 * time.Second
	}
	return nil
}

// RequireServer checks the settings the serve command needs.
func (c *AppConfig) RequireServer() error {
	if c.Server.Address == "" {
		return errors.New("server.address: must be specified")
	}
	return nil
}

// RequireDataset checks the settings the bin command needs.
func (c *AppConfig) RequireDataset() error {
	if c.Dataset.File == "" {
		return errors.New("dataset.file: must be specified")
	}
	if len(c.Binning.Plans) == 0 {
		return errors.New("binning.plans: must be specified")
	}
	return nil
}

// LoadConfig loads configuration from the specified file using Viper.
// Supports YAML format. Also includes environment variable loading (AutomaticEnv),
// which can override values from the file: FIELDCAT_CATALOG_PATH overrides catalog.path.
//
// Parameter configPath: path to the configuration file.
//
// Returns a pointer to AppConfig or an error if:
// - the file is not found or inaccessible
// - the configuration has invalid format
// - one of the sections fails validation
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("fieldcat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
