package cmd

import (
	"github.com/huangsam/grimoire/core"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/spf13/cobra"
)

// reportRun adapts a core executor to a cobra Run function.
func reportRun(exec core.ExecutorFunc, failure string) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		if err := exec(rootCtx, cfg, logger); err != nil {
			contract.LogFatal(failure, err)
		}
	}
}

// aggCmd computes one value per metric over the whole range.
var aggCmd = &cobra.Command{
	Use:     "agg",
	Aliases: []string{"aggregate"},
	Short:   "Show one value per metric over the time range.",
	Long: `Compute each selected metric once over the half-open range [start, end).

Without --metrics the core aggregate set of the data source is reported.

Examples:
  # Core SCM metrics for 2014
  grimoire agg --db-connect cvsanaly.db --start 2014-01-01 --end 2015-01-01

  # Issue tracker activity of one company
  grimoire agg --source its --dimension company --value Acme

  # Selected metrics as JSON
  grimoire agg --metrics commits,authors,avg_commits_author --output json`,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteAggregate, "Cannot compute aggregates"),
}

// tsCmd computes one value per period bucket.
var tsCmd = &cobra.Command{
	Use:     "ts",
	Aliases: []string{"timeseries"},
	Short:   "Show one value per period bucket for each metric.",
	Long: `Compute each selected metric per day, week, month or year.

Buckets without activity are filled with zeros, so every series covers the
whole range. Aggregate-only metrics (averages, review time) are left out.

Examples:
  # Monthly commits and authors
  grimoire ts --metrics commits,authors --period month

  # Weekly mailing list traffic of a project and its subprojects
  grimoire ts --source mls --period week --dimension project --value openstack

  # Export to Parquet for analytics
  grimoire ts --output parquet --output-file activity.parquet`,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteTimeSeries, "Cannot compute time series"),
}

// topCmd ranks entities by activity.
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Rank people, companies or repositories by activity.",
	Long: `Rank the entities of each top-capable metric, most active first.

Ties are broken by name. Use --people-out to hide bots, --companies-out to hide
companies and --days to count only the last days of the range.

Examples:
  # Top 10 authors, bots excluded
  grimoire top --metrics authors --limit 10 --people-out dependabot,jenkins

  # Most active companies over the last 30 days
  grimoire top --metrics companies --days 30`,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteTop, "Cannot compute top lists"),
}

// listCmd lists every entity with its activity.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every repository, company or project with its activity.",
	Long: `List all entities of each selected metric with their activity, without a limit.

Examples:
  # Every repository with its commit count
  grimoire list --metrics repositories

  # Projects with commits in the range
  grimoire list --metrics projects`,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteList, "Cannot compute lists"),
}

// trendsCmd compares the last days of the range with the days before.
var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Compare the last days of the range with the previous window.",
	Long: `For each metric, compute the value of the last --days days (30 by default),
the difference with the window before and the percentage change.

Examples:
  grimoire trends --days 7
  grimoire trends --source scr --metrics submitted,merged --days 90`,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteTrends, "Cannot compute trends"),
}

// metricsCmd shows the metric catalog of a data source.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the metrics of a data source and what they support.",
	Long: `Display every metric of the selected data source with the report shapes it
supports: aggregate, time-series, top-list and list.

Examples:
  grimoire metrics --source scr
  grimoire metrics --source mls --output csv`,
	PreRunE: catalogSetup,
	Run:     reportRun(core.ExecuteCatalog, "Cannot list metrics"),
}
