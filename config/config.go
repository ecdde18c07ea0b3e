package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/masquerade/pkg/core"
)

// --- Configuration Structs ---

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	DSN        string `mapstructure:"dsn" yaml:"dsn"`
	Dialect    string `mapstructure:"dialect" yaml:"dialect,omitempty"`
	Schema     string `mapstructure:"schema" yaml:"schema,omitempty"`
	DriverPath string `mapstructure:"driver_path" yaml:"driver_path,omitempty"` // ADBC drivers only
}

type AnonymizerConfig struct {
	Limit           int    `mapstructure:"limit" yaml:"limit"`
	Workers         int    `mapstructure:"workers" yaml:"workers"`
	Seed            int64  `mapstructure:"seed" yaml:"seed"`
	Dictionary      string `mapstructure:"dictionary" yaml:"dictionary,omitempty"`
	DryRun          bool   `mapstructure:"dry_run" yaml:"dry_run"`
	ChangeLog       string `mapstructure:"change_log" yaml:"change_log,omitempty"`
	ChangeLogFormat string `mapstructure:"change_log_format" yaml:"change_log_format,omitempty"`
}

type S3Config struct {
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
	SessionToken    string `mapstructure:"session_token" yaml:"session_token,omitempty"`
	UsePathStyle    bool   `mapstructure:"use_path_style" yaml:"use_path_style,omitempty"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
}

type StorageConfig struct {
	S3  S3Config  `mapstructure:"s3" yaml:"s3"`
	GCS GCSConfig `mapstructure:"gcs" yaml:"gcs"`
}

type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Pushgateway string `mapstructure:"pushgateway" yaml:"pushgateway,omitempty"`
	Job         string `mapstructure:"job" yaml:"job"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port" yaml:"port"`
	Prefork bool   `mapstructure:"prefork" yaml:"prefork"`
}

type ColumnConfig struct {
	Name     string         `mapstructure:"name" yaml:"name"`
	Function string         `mapstructure:"function" yaml:"function"`
	Params   map[string]any `mapstructure:"params" yaml:"params,omitempty"`
	SkipNull bool           `mapstructure:"skip_null" yaml:"skip_null,omitempty"`
	Exclude  []string       `mapstructure:"exclude" yaml:"exclude,omitempty"`
}

type TableConfig struct {
	Name       string         `mapstructure:"name" yaml:"name"`
	PrimaryKey string         `mapstructure:"primary_key" yaml:"primary_key"`
	Where      string         `mapstructure:"where" yaml:"where,omitempty"`
	Columns    []ColumnConfig `mapstructure:"columns" yaml:"columns"`
}

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Anonymizer AnonymizerConfig `mapstructure:"anonymizer" yaml:"anonymizer"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Tables     []TableConfig    `mapstructure:"-" yaml:"tables"`
}

// EnvPrefix prefixes environment overrides, e.g. MASQUERADE_DATABASE_DSN.
const EnvPrefix = "MASQUERADE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dialect", "")
	v.SetDefault("database.schema", "")
	v.SetDefault("database.driver_path", "")
	v.SetDefault("anonymizer.limit", 1000)
	v.SetDefault("anonymizer.workers", 4)
	v.SetDefault("anonymizer.seed", 0)
	v.SetDefault("anonymizer.dictionary", "")
	v.SetDefault("anonymizer.dry_run", false)
	v.SetDefault("anonymizer.change_log", "")
	v.SetDefault("anonymizer.change_log_format", "json")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.session_token", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.gcs.credentials_file", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.job", "masquerade")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "masquerade.log")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("server.port", "5555")
	v.SetDefault("server.prefork", false)
}

// --- Load Configuration ---

// LoadConfig reads the YAML file at configPath. Scalar settings may be
// overridden from the environment. Tables are decoded straight from the
// file because viper folds map keys to lower case and parameter names are
// case-sensitive.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", configPath, err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}
	var doc struct {
		Tables []TableConfig `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding tables in %s: %w", configPath, err)
	}
	cfg.Tables = doc.Tables

	return &cfg, nil
}

// --- Validation Functions ---

// validate is a helper function to reduce repetition.
func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := c.Anonymizer.Validate(); err != nil {
		return fmt.Errorf("anonymizer validation failed: %w", err)
	}
	if err := validate(len(c.Tables) > 0, "at least one table is required"); err != nil {
		return err
	}
	names := lo.Map(c.Tables, func(t TableConfig, _ int) string { return t.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("table '%s' is configured more than once", dups[0])
	}
	for i := range c.Tables {
		if err := c.Tables[i].Validate(); err != nil {
			return fmt.Errorf("table '%s' validation failed: %w", c.Tables[i].Name, err)
		}
	}
	return nil
}

func (dc *DatabaseConfig) Validate() error {
	if err := validate(dc.Driver != "", "database driver is required"); err != nil {
		return err
	}
	return validate(dc.DSN != "", "database dsn is required")
}

func (ac *AnonymizerConfig) Validate() error {
	if err := validate(ac.Limit >= 0, "limit must not be negative"); err != nil {
		return err
	}
	if err := validate(ac.Workers >= 0, "workers must not be negative"); err != nil {
		return err
	}
	return validate(lo.Contains([]string{"", "json", "parquet", "arrow"}, ac.ChangeLogFormat),
		"change log format must be json, parquet or arrow, got %q", ac.ChangeLogFormat)
}

func (tc *TableConfig) Validate() error {
	if err := validate(tc.Name != "", "table name is required"); err != nil {
		return err
	}
	if err := validate(tc.PrimaryKey != "", "primary key is required"); err != nil {
		return err
	}
	if err := validate(len(tc.Columns) > 0, "at least one column is required"); err != nil {
		return err
	}
	seen := make(map[string]bool, len(tc.Columns))
	for i := range tc.Columns {
		col := &tc.Columns[i]
		if err := col.Validate(); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		if err := validate(col.Name != tc.PrimaryKey, "column '%s' is the primary key", col.Name); err != nil {
			return err
		}
		if err := validate(!seen[col.Name], "column '%s' is configured more than once", col.Name); err != nil {
			return err
		}
		seen[col.Name] = true
	}
	return nil
}

func (cc *ColumnConfig) Validate() error {
	if err := validate(cc.Name != "", "column name is required"); err != nil {
		return err
	}
	return validate(cc.Function != "", "function is required for column '%s'", cc.Name)
}

// --- Conversion ---

// RuleSets converts the configured tables into one rule set per table,
// keeping only the tables named in filter when it is non-empty.
func (c *Config) RuleSets(filter ...string) []core.RuleSet {
	tables := c.Tables
	if len(filter) > 0 {
		tables = lo.Filter(tables, func(t TableConfig, _ int) bool { return lo.Contains(filter, t.Name) })
	}
	return lo.Map(tables, func(t TableConfig, _ int) core.RuleSet {
		return core.RuleSet{
			Table:      t.Name,
			PrimaryKey: t.PrimaryKey,
			Where:      t.Where,
			Rules: lo.Map(t.Columns, func(col ColumnConfig, _ int) core.Rule {
				return core.Rule{
					Table:    t.Name,
					Column:   col.Name,
					Function: col.Function,
					Params:   lo.Assign(map[string]any{}, col.Params),
					SkipNull: col.SkipNull,
					Exclude:  append([]string(nil), col.Exclude...),
				}
			}),
		}
	})
}
