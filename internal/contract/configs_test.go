package contract

import (
	"testing"
	"time"

	"github.com/huangsam/grimoire/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Backend:   "sqlite",
		DBConnect: "/tmp/grimoire.db",
		Source:    "scm",
		Metrics:   "core",
		Period:    "month",
		Start:     "2014-01-01",
		End:       "2014-05-01",
		Limit:     10,
		Precision: 2,
		Output:    "text",
		Color:     "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "invalid backend", mutate: func(in *ConfigRawInput) { in.Backend = "oracle" }, expectError: true},
		{name: "sqlite without path", mutate: func(in *ConfigRawInput) { in.DBConnect = "" }, expectError: true},
		{
			name: "mysql with tcp dsn",
			mutate: func(in *ConfigRawInput) {
				in.Backend = "mysql"
				in.DBConnect = "root:secret@tcp(localhost:3306)/cvsanaly"
			},
		},
		{
			name: "mysql without tcp",
			mutate: func(in *ConfigRawInput) {
				in.Backend = "mysql"
				in.DBConnect = "root:secret@localhost/cvsanaly"
			},
			expectError: true,
		},
		{
			name: "postgres without dbname",
			mutate: func(in *ConfigRawInput) {
				in.Backend = "postgresql"
				in.DBConnect = "host=localhost port=5432"
			},
			expectError: true,
		},
		{name: "invalid source", mutate: func(in *ConfigRawInput) { in.Source = "git" }, expectError: true},
		{name: "invalid period", mutate: func(in *ConfigRawInput) { in.Period = "quarter" }, expectError: true},
		{name: "inverted range", mutate: func(in *ConfigRawInput) { in.Start, in.End = in.End, in.Start }, expectError: true},
		{name: "empty range", mutate: func(in *ConfigRawInput) { in.End = in.Start }, expectError: true},
		{name: "bad start", mutate: func(in *ConfigRawInput) { in.Start = "yesterday" }, expectError: true},
		{name: "zero limit", mutate: func(in *ConfigRawInput) { in.Limit = 0 }, expectError: true},
		{name: "limit too large", mutate: func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 }, expectError: true},
		{name: "negative days", mutate: func(in *ConfigRawInput) { in.Days = -1 }, expectError: true},
		{name: "precision too large", mutate: func(in *ConfigRawInput) { in.Precision = 5 }, expectError: true},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "parquet without file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: true},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "invalid dimension", mutate: func(in *ConfigRawInput) { in.Dimension = "team" }, expectError: true},
		{name: "value without dimension", mutate: func(in *ConfigRawInput) { in.Value = "Acme" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateValues(t *testing.T) {
	input := validInput()
	input.Metrics = "commits, authors,"
	input.Dimension = "Company"
	input.Value = " Acme "
	input.Exclude = "Unknown, Individual"
	input.PeopleOut = "bot1,bot2"
	input.Start = "2014-01-01T00:00:00Z"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.SQLiteBackend, cfg.Backend)
	assert.Equal(t, schema.SCM, cfg.Source)
	assert.Equal(t, schema.PeriodMonth, cfg.Period)
	assert.Equal(t, []string{"commits", "authors"}, cfg.Metrics)
	assert.Equal(t, schema.Dimension{Kind: schema.CompanyDimension, Value: "Acme", Exclude: []string{"Unknown", "Individual"}}, cfg.Dimension)
	assert.Equal(t, []string{"bot1", "bot2"}, cfg.PeopleOut)
	assert.True(t, cfg.UseColors)

	want := schema.NewTimeRange(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, want, cfg.Range())

	f := cfg.Filter()
	assert.Equal(t, schema.PeriodMonth, f.Period)
	assert.Equal(t, 10, f.Limit)
	require.Len(t, f.Dimensions, 1)
	assert.Equal(t, "Acme", f.Dimensions[0].Value)
}

func TestCoreMetricsSelection(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))
	assert.Nil(t, cfg.Metrics)
	assert.Empty(t, cfg.Filter().Dimensions)
}

func TestDefaultTimeRange(t *testing.T) {
	input := validInput()
	input.Start, input.End = "", ""
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	cfg := &Config{}
	require.NoError(t, processTimeRange(cfg, input, now))
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), cfg.EndTime)
	assert.Equal(t, cfg.EndTime.AddDate(0, 0, -DefaultLookbackDays), cfg.StartTime)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		Metrics:   []string{"commits"},
		PeopleOut: []string{"bot"},
		Dimension: schema.Dimension{Kind: schema.CompanyDimension, Exclude: []string{"Unknown"}},
	}
	clone := cfg.CloneWithTimeWindow(time.Unix(0, 0), time.Unix(60, 0))
	clone.Metrics[0] = "authors"
	clone.PeopleOut[0] = "human"
	clone.Dimension.Exclude[0] = "Acme"

	assert.Equal(t, "commits", cfg.Metrics[0])
	assert.Equal(t, "bot", cfg.PeopleOut[0])
	assert.Equal(t, "Unknown", cfg.Dimension.Exclude[0])
	assert.Equal(t, time.Unix(60, 0), clone.EndTime)
	assert.True(t, cfg.EndTime.IsZero())
}

func TestRevalidateOverrides(t *testing.T) {
	base := &Config{}
	require.NoError(t, ProcessAndValidate(base, validInput()))
	now := time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		overrides   Overrides
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{name: "no overrides keeps base", check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, schema.SCM, cfg.Source)
			assert.Equal(t, 10, cfg.ResultLimit)
		}},
		{name: "source and period", overrides: Overrides{Source: "ITS", Period: "week"}, check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, schema.ITS, cfg.Source)
			assert.Equal(t, schema.PeriodWeek, cfg.Period)
		}},
		{name: "metrics list", overrides: Overrides{Metrics: "commits, authors"}, check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, []string{"commits", "authors"}, cfg.Metrics)
		}},
		{name: "range", overrides: Overrides{Start: "2014-02-01", End: "2014-03-01"}, check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime)
			assert.Equal(t, time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC), cfg.EndTime)
		}},
		{name: "dimension", overrides: Overrides{Dimension: "company", Value: "Acme"}, check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, schema.Dimension{Kind: schema.CompanyDimension, Value: "Acme"}, cfg.Dimension)
		}},
		{name: "limit and days", overrides: Overrides{Limit: 3, Days: 30, PeopleOut: "bot"}, check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, 3, cfg.ResultLimit)
			assert.Equal(t, 30, cfg.Days)
			assert.Equal(t, []string{"bot"}, cfg.PeopleOut)
		}},
		{name: "invalid source", overrides: Overrides{Source: "svn"}, expectError: true},
		{name: "invalid period", overrides: Overrides{Period: "hour"}, expectError: true},
		{name: "inverted range", overrides: Overrides{Start: "2014-05-01", End: "2014-01-01"}, expectError: true},
		{name: "bad date", overrides: Overrides{Start: "yesterday-ish"}, expectError: true},
		{name: "value without dimension", overrides: Overrides{Value: "Acme"}, expectError: true},
		{name: "dimension without value", overrides: Overrides{Dimension: "repository"}, expectError: true},
		{name: "limit too large", overrides: Overrides{Limit: MaxResultLimit + 1}, expectError: true},
		{name: "negative days", overrides: Overrides{Days: -1}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base.Clone()
			err := RevalidateOverrides(cfg, tt.overrides, now)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestProcessStoreConfig(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessStoreConfig(cfg, &ConfigRawInput{Backend: "SQLite", DBConnect: "/tmp/x.db", LogLevel: "debug"}))
	assert.Equal(t, schema.SQLiteBackend, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)

	assert.Error(t, ProcessStoreConfig(&Config{}, &ConfigRawInput{Backend: "postgresql", DBConnect: "dbname=x"}))
}

func TestProcessCatalogConfig(t *testing.T) {
	in := validInput()
	in.Backend, in.DBConnect = "", ""
	in.Source = "mls"

	cfg := &Config{}
	require.NoError(t, ProcessCatalogConfig(cfg, in))
	assert.Equal(t, schema.MLS, cfg.Source)

	in.Output = "xml"
	assert.Error(t, ProcessCatalogConfig(&Config{}, in))
}
