package contract

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/grimoire/schema"
)

// Default values for configuration.
const (
	DefaultLookbackDays = 180
	DefaultResultLimit  = 25
	MaxResultLimit      = 1000
	DefaultPrecision    = 2
	MaxPrecision        = 4
	DefaultTrendDays    = 30
)

// CoreMetrics is the metrics value that selects the core set of a data source.
const CoreMetrics = "core"

// Config holds the runtime configuration of a report run.
// This struct is the "final, validated" config.
type Config struct {
	RunID string // set per invocation, tags logs and exports

	Backend          schema.DatabaseBackend
	DBConnect        string // Please use env var as this is plaintext
	IdentitiesSchema string // schema or attached database holding identity tables

	Source    schema.DataSource
	Metrics   []string // empty means the core set of Source
	Period    schema.Period
	StartTime time.Time
	EndTime   time.Time

	Dimension    schema.Dimension
	PeopleOut    []string
	CompaniesOut []string
	ResultLimit  int
	Days         int // top-list and trend window, 0 = whole range
	ProjectsFile string

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Store ---
	Backend          string `mapstructure:"backend"`
	DBConnect        string `mapstructure:"db-connect"`
	IdentitiesSchema string `mapstructure:"identities-schema"`

	// --- Metric selection ---
	Source  string `mapstructure:"source"`
	Metrics string `mapstructure:"metrics"`
	Period  string `mapstructure:"period"`
	Start   string `mapstructure:"start"`
	End     string `mapstructure:"end"`

	// --- Scoping ---
	Dimension    string `mapstructure:"dimension"`
	Value        string `mapstructure:"value"`
	Exclude      string `mapstructure:"exclude"`
	PeopleOut    string `mapstructure:"people-out"`
	CompaniesOut string `mapstructure:"companies-out"`
	Limit        int    `mapstructure:"limit"`
	Days         int    `mapstructure:"days"`
	ProjectsFile string `mapstructure:"projects-file"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`

	// --- Observability ---
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Metrics = slices.Clone(c.Metrics)
	clone.PeopleOut = slices.Clone(c.PeopleOut)
	clone.CompaniesOut = slices.Clone(c.CompaniesOut)
	clone.Dimension.Exclude = slices.Clone(c.Dimension.Exclude)
	return &clone
}

// CloneWithTimeWindow creates a copy of the Config and sets the new StartTime and EndTime.
func (c *Config) CloneWithTimeWindow(start time.Time, end time.Time) *Config {
	clone := c.Clone()
	clone.StartTime = start
	clone.EndTime = end
	return clone
}

// Range returns the configured half-open time range.
func (c *Config) Range() schema.TimeRange {
	return schema.NewTimeRange(c.StartTime, c.EndTime)
}

// Filter builds the per-call metric filter from the config.
func (c *Config) Filter() schema.Filter {
	f := schema.Filter{
		Period:       c.Period,
		Range:        c.Range(),
		Limit:        c.ResultLimit,
		PeopleOut:    slices.Clone(c.PeopleOut),
		CompaniesOut: slices.Clone(c.CompaniesOut),
	}
	if c.Dimension.IsScoped() {
		f = f.WithDimension(c.Dimension)
	}
	return f
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	if err := processMetricSelection(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	return processDimension(cfg, input)
}

// ProcessStoreConfig validates only the store and logging inputs, for
// commands that never compute metrics.
func ProcessStoreConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.LogLevel = input.LogLevel
	cfg.LogFormat = input.LogFormat
	return validateBackendConfig(cfg, input)
}

// ProcessCatalogConfig validates the inputs needed to describe the metric
// catalog, which reads no database.
func ProcessCatalogConfig(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	return processMetricSelection(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend (path to the database file)", backend)
		}
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' followed by host:port")
		}
		if _, err := mysql.ParseDSN(connStr); err != nil {
			return fmt.Errorf("invalid MySQL connection string: %w", err)
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfig validates the backend and its connection string.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.Backend = schema.DatabaseBackend(strings.ToLower(input.Backend))
	if _, ok := schema.ValidDatabaseBackends[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql", input.Backend)
	}
	cfg.DBConnect = input.DBConnect
	cfg.IdentitiesSchema = strings.TrimSpace(input.IdentitiesSchema)
	return ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect)
}

// validateSimpleInputs processes and validates the output and scoping fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.ProjectsFile = input.ProjectsFile
	cfg.PeopleOut = SplitList(input.PeopleOut)
	cfg.CompaniesOut = SplitList(input.CompaniesOut)
	cfg.LogLevel = input.LogLevel
	cfg.LogFormat = input.LogFormat
	cfg.MetricsAddr = input.MetricsAddr

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Days < 0 {
		return fmt.Errorf("days cannot be negative (received %d)", input.Days)
	}
	cfg.Days = input.Days

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}
	return nil
}

// processMetricSelection validates the source, period and metric list.
func processMetricSelection(cfg *Config, input *ConfigRawInput) error {
	cfg.Source = schema.DataSource(strings.ToLower(input.Source))
	if _, ok := schema.ValidDataSources[cfg.Source]; !ok {
		return fmt.Errorf("invalid source '%s'. must be scm, its, mls, scr, irc, mediawiki", input.Source)
	}

	cfg.Period = schema.Period(strings.ToLower(input.Period))
	if _, ok := schema.ValidPeriods[cfg.Period]; !ok {
		return fmt.Errorf("invalid period '%s'. must be none, day, week, month, year", input.Period)
	}

	cfg.Metrics = nil
	if ids := SplitList(input.Metrics); !(len(ids) == 1 && ids[0] == CoreMetrics) {
		cfg.Metrics = ids
	}
	return nil
}

// processTimeRange parses the range and aligns both ends to midnight UTC.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	cfg.EndTime = StartOfDay(now).AddDate(0, 0, 1)
	if input.End != "" {
		t, err := ParseDate(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		cfg.EndTime = t
	}

	cfg.StartTime = cfg.EndTime.AddDate(0, 0, -DefaultLookbackDays)
	if input.Start != "" {
		t, err := ParseDate(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.StartTime = t
	}

	if !cfg.StartTime.Before(cfg.EndTime) {
		return fmt.Errorf("start time (%s) must be before end time (%s)",
			cfg.StartTime.Format(time.DateOnly), cfg.EndTime.Format(time.DateOnly))
	}
	return nil
}

// processDimension validates the scoping dimension.
func processDimension(cfg *Config, input *ConfigRawInput) error {
	kind := schema.DimensionKind(strings.ToLower(strings.TrimSpace(input.Dimension)))
	if kind == "" {
		kind = schema.NoDimension
	}
	if _, ok := schema.ValidDimensionKinds[kind]; !ok {
		return fmt.Errorf("invalid dimension '%s'. must be none, repository, company, country, domain, project, person", input.Dimension)
	}
	cfg.Dimension = schema.Dimension{
		Kind:    kind,
		Value:   strings.TrimSpace(input.Value),
		Exclude: SplitList(input.Exclude),
	}
	if kind == schema.NoDimension && (cfg.Dimension.Value != "" || len(cfg.Dimension.Exclude) > 0) {
		return fmt.Errorf("--value and --exclude need a --dimension")
	}
	return nil
}

// Overrides are the per-request settings an MCP client may change on top of
// the server configuration. Empty fields keep the base value.
type Overrides struct {
	Source    string
	Metrics   string
	Period    string
	Start     string
	End       string
	Dimension string
	Value     string
	PeopleOut string
	Limit     int
	Days      int
}

// RevalidateOverrides applies the overrides to cfg and validates the result.
// cfg is expected to be a clone of an already validated config.
func RevalidateOverrides(cfg *Config, o Overrides, now time.Time) error {
	if o.Source != "" {
		src := schema.DataSource(strings.ToLower(o.Source))
		if _, ok := schema.ValidDataSources[src]; !ok {
			return fmt.Errorf("invalid source '%s'", o.Source)
		}
		cfg.Source = src
	}
	if o.Metrics != "" {
		cfg.Metrics = nil
		if ids := SplitList(o.Metrics); !(len(ids) == 1 && ids[0] == CoreMetrics) {
			cfg.Metrics = ids
		}
	}
	if o.Period != "" {
		p := schema.Period(strings.ToLower(o.Period))
		if _, ok := schema.ValidPeriods[p]; !ok {
			return fmt.Errorf("invalid period '%s'", o.Period)
		}
		cfg.Period = p
	}
	if o.End != "" {
		t, err := ParseDate(o.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		cfg.EndTime = t
	}
	if o.Start != "" {
		t, err := ParseDate(o.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.StartTime = t
	}
	if !cfg.StartTime.Before(cfg.EndTime) {
		return fmt.Errorf("start time (%s) must be before end time (%s)",
			cfg.StartTime.Format(time.DateOnly), cfg.EndTime.Format(time.DateOnly))
	}
	if o.Dimension != "" {
		kind := schema.DimensionKind(strings.ToLower(strings.TrimSpace(o.Dimension)))
		if _, ok := schema.ValidDimensionKinds[kind]; !ok {
			return fmt.Errorf("invalid dimension '%s'", o.Dimension)
		}
		cfg.Dimension = schema.Dimension{Kind: kind, Value: strings.TrimSpace(o.Value)}
	} else if o.Value != "" {
		return fmt.Errorf("value needs a dimension")
	}
	if cfg.Dimension.Kind != schema.NoDimension && cfg.Dimension.Kind != "" && cfg.Dimension.Value == "" {
		return fmt.Errorf("dimension %s needs a value", cfg.Dimension.Kind)
	}
	if o.PeopleOut != "" {
		cfg.PeopleOut = SplitList(o.PeopleOut)
	}
	if o.Limit != 0 {
		if o.Limit < 0 || o.Limit > MaxResultLimit {
			return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, o.Limit)
		}
		cfg.ResultLimit = o.Limit
	}
	if o.Days < 0 {
		return fmt.Errorf("days cannot be negative (received %d)", o.Days)
	}
	if o.Days > 0 {
		cfg.Days = o.Days
	}
	return nil
}
