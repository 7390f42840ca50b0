// Package core has the report orchestration shared by the CLI and the MCP server.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/grimoire/core/dimension"
	"github.com/huangsam/grimoire/core/metrics"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/internal/datastore"
	"github.com/huangsam/grimoire/internal/outwriter"
	"github.com/huangsam/grimoire/internal/parquet"
	"github.com/huangsam/grimoire/internal/registry"
	"github.com/huangsam/grimoire/schema"
	"go.uber.org/zap"
)

// ExecutorFunc defines the function signature for executing different report kinds.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error

// ExecuteAggregate reports one value per metric over the range.
func ExecuteAggregate(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error {
	return execute(ctx, schema.AggregateReport, cfg, logger)
}

// ExecuteTimeSeries reports one row per period bucket per metric.
func ExecuteTimeSeries(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error {
	return execute(ctx, schema.TimeSeriesReport, cfg, logger)
}

// ExecuteTop reports the highest ranked entities per metric.
func ExecuteTop(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error {
	return execute(ctx, schema.TopListReport, cfg, logger)
}

// ExecuteList reports every ranked entity per metric.
func ExecuteList(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error {
	return execute(ctx, schema.ListReport, cfg, logger)
}

// ExecuteTrends compares the last days of the range with the days before.
func ExecuteTrends(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error {
	return execute(ctx, schema.TrendsReport, cfg, logger)
}

// ExecuteCatalog displays the metrics of the configured source.
// It does not need a database.
func ExecuteCatalog(_ context.Context, cfg *contract.Config, _ *zap.Logger) error {
	catalog, err := metrics.DefaultCatalog()
	if err != nil {
		return err
	}
	return outwriter.WriteCatalog(cfg.Source, catalog.Infos(cfg.Source), cfg)
}

func execute(ctx context.Context, kind schema.ReportKind, cfg *contract.Config, logger *zap.Logger) error {
	rt, err := NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	report, err := rt.Run(ctx, kind, cfg)
	if err != nil {
		return err
	}
	return WriteReport(report, cfg)
}

// WriteReport writes a report in the configured output format.
func WriteReport(report *schema.Report, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut {
		return parquet.WriteReport(cfg.OutputFile, report)
	}
	return outwriter.WriteReport(report, cfg)
}

// Runtime holds the store connection and the services built on top of it.
type Runtime struct {
	store   contract.Store
	engine  *metrics.Engine
	catalog *metrics.Catalog
	logger  *zap.Logger
}

// NewRuntime opens the configured store and builds the metric engine for its
// dialect. Projects come from cfg.ProjectsFile when set, else from the
// identities schema.
func NewRuntime(ctx context.Context, cfg *contract.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d, err := query.NewDialect(cfg.Backend)
	if err != nil {
		return nil, err
	}
	catalog, err := metrics.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	store, err := datastore.Open(ctx, cfg.Backend, cfg.DBConnect, datastore.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	var reg contract.ProjectRegistry = registry.NewSQL(store, d, cfg.IdentitiesSchema)
	if cfg.ProjectsFile != "" {
		reg = registry.NewFile(cfg.ProjectsFile)
	}
	resolver := dimension.NewResolver(reg, dimension.NewTables(d, cfg.IdentitiesSchema), dimension.WithLogger(logger))
	engine := metrics.NewEngine(store, query.NewComposer(d), resolver, metrics.WithLogger(logger))

	return &Runtime{store: store, engine: engine, catalog: catalog, logger: logger}, nil
}

// Catalog returns the metric catalog.
func (rt *Runtime) Catalog() *metrics.Catalog { return rt.catalog }

// Engine returns the metric engine.
func (rt *Runtime) Engine() *metrics.Engine { return rt.engine }

// Close releases the store connection.
func (rt *Runtime) Close() error { return rt.store.Close() }

// selectMetrics returns the configured metrics, or the core set of the report kind.
func (rt *Runtime) selectMetrics(kind schema.ReportKind, cfg *contract.Config) ([]metrics.Metric, error) {
	if kind == schema.TrendsReport && len(cfg.Metrics) == 0 {
		return rt.catalog.Trends(cfg.Source), nil
	}
	return rt.catalog.Select(cfg.Source, kind.Capability(), cfg.Metrics)
}

// Run computes a report. Metrics are computed one after another and the
// first failure aborts the run. Empty results of aggregate-only metrics are
// left out of time series reports.
func (rt *Runtime) Run(ctx context.Context, kind schema.ReportKind, cfg *contract.Config) (*schema.Report, error) {
	start := time.Now()
	ms, err := rt.selectMetrics(kind, cfg)
	if err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	filter := cfg.Filter()
	report := &schema.Report{RunID: runID, Kind: kind, Source: cfg.Source, Filter: filter, Generated: start.UTC()}

	days := cfg.Days
	if kind == schema.TrendsReport && days == 0 {
		days = contract.DefaultTrendDays
	}
	if kind == schema.TopListReport || kind == schema.TrendsReport {
		report.Days = days
	}

	for _, m := range ms {
		info := m.Info()
		var res *schema.Result
		switch kind {
		case schema.TimeSeriesReport:
			res, err = rt.engine.TimeSeries(ctx, m, filter)
		case schema.TopListReport:
			res, err = rt.engine.Top(ctx, m, filter, days)
		case schema.ListReport:
			res, err = rt.engine.List(ctx, m, filter)
		case schema.TrendsReport:
			res, err = rt.engine.Trends(ctx, m, filter, days)
		case schema.AggregateReport:
			res, err = rt.engine.Aggregate(ctx, m, filter)
		default:
			return nil, fmt.Errorf("unknown report kind %q", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", info.ID, err)
		}
		if res.IsEmpty() {
			rt.logger.Debug("metric left out of report", zap.String("metric", info.ID), zap.String("kind", string(kind)))
			continue
		}
		report.Entries = append(report.Entries, schema.ReportEntry{Metric: info.ID, Name: info.Name, Result: res})
	}

	report.Elapsed = time.Since(start)
	rt.logger.Info("report computed",
		zap.String("kind", string(kind)),
		zap.String("source", string(cfg.Source)),
		zap.Int("metrics", len(report.Entries)),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}
