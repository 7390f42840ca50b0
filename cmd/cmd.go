// Package cmd defines the command-line interface for grimoire.
package cmd

import (
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(aggCmd)
	rootCmd.AddCommand(tsCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the migrate subcommands to the parent migrate command
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateToCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.String("backend", string(schema.SQLiteBackend), "Activity store backend: sqlite or mysql or postgresql")
	pf.String("db-connect", "", "Connection string: a file path for sqlite, a DSN for mysql/postgresql")
	pf.String("identities-schema", "", "Schema or attached database holding the identity tables")
	pf.StringP("source", "s", string(schema.SCM), "Data source: scm or its or mls or scr or irc or mediawiki")
	pf.StringP("metrics", "m", contract.CoreMetrics, "Comma-separated metric ids, or 'core' for the default set")
	pf.StringP("period", "p", string(schema.PeriodMonth), "Time series period: none or day or week or month or year")
	pf.String("start", "", "Range start (inclusive) in YYYY-MM-DD, RFC3339 or time ago")
	pf.String("end", "", "Range end (exclusive) in YYYY-MM-DD, RFC3339 or time ago")
	pf.StringP("dimension", "d", string(schema.NoDimension), "Scope: none or repository or company or country or domain or project or person")
	pf.String("value", "", "Dimension value, e.g. a repository uri or a company name")
	pf.String("exclude", "", "Comma-separated dimension values to leave out")
	pf.String("people-out", "", "Comma-separated identities to leave out of rankings, e.g. bots")
	pf.String("companies-out", "", "Comma-separated companies to leave out of rankings")
	pf.IntP("limit", "l", contract.DefaultResultLimit, "Number of ranked entities to display")
	pf.Int("days", 0, "Only count the last N days of the range (top and trends)")
	pf.String("projects-file", "", "YAML project tree used instead of the projects tables")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", contract.DefaultPrecision, "Decimal precision for ratio columns")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	pf.String("log-level", "warn", "Log level: debug or info or warn or error")
	pf.String("log-format", "console", "Log format: console or json")
	pf.String("config", "", "Path to config file")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of mcpCmd to Viper
	mcpCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	if err := viper.BindPFlags(mcpCmd.Flags()); err != nil {
		contract.LogFatal("Error binding mcp flags", err)
	}
}
