// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/grimoire/core/metrics"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Runner computes reports. core.Runtime implements it.
type Runner interface {
	Run(ctx context.Context, kind schema.ReportKind, cfg *contract.Config) (*schema.Report, error)
	Catalog() *metrics.Catalog
}

var (
	sourceNames    = []string{"scm", "its", "mls", "scr", "irc", "mediawiki"}
	periodNames    = []string{"none", "day", "week", "month", "year"}
	dimensionNames = []string{"none", "repository", "company", "country", "domain", "project", "person"}
)

// scopeOptions are the arguments shared by every report tool.
func scopeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("source", mcp.Description("Data source. Defaults to the server configuration."), mcp.Enum(sourceNames...)),
		mcp.WithString("metrics", mcp.Description("Comma separated metric ids, or 'core' for the default set.")),
		mcp.WithString("start", mcp.Description("Range start, YYYY-MM-DD or RFC3339. Inclusive.")),
		mcp.WithString("end", mcp.Description("Range end, YYYY-MM-DD or RFC3339. Exclusive.")),
		mcp.WithString("dimension", mcp.Description("Dimension scoping the activity."), mcp.Enum(dimensionNames...)),
		mcp.WithString("value", mcp.Description("Dimension value, e.g. a company name or a project id.")),
	}
}

// NewMCPServer initializes and configures the grimoire MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, runner Runner) *server.MCPServer {
	s := server.NewMCPServer(
		"Grimoire Metrics Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		runner:  runner,
	}

	// --- 1. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the metrics of a data source with the shapes each one supports."),
		mcp.WithString("source", mcp.Description("Data source."), mcp.Enum(sourceNames...)),
	), h.handleListMetrics)

	// --- 2. Tool: get_aggregate ---
	s.AddTool(mcp.NewTool("get_aggregate",
		append([]mcp.ToolOption{mcp.WithDescription("Compute one value per metric over a time range.")}, scopeOptions()...)...,
	), h.handleGetAggregate)

	// --- 3. Tool: get_timeseries ---
	s.AddTool(mcp.NewTool("get_timeseries",
		append([]mcp.ToolOption{
			mcp.WithDescription("Compute one value per period bucket per metric, with empty buckets filled."),
			mcp.WithString("period", mcp.Description("Bucket size. Defaults to month."), mcp.Enum(periodNames...)),
		}, scopeOptions()...)...,
	), h.handleGetTimeseries)

	// --- 4. Tool: get_top ---
	s.AddTool(mcp.NewTool("get_top",
		append([]mcp.ToolOption{
			mcp.WithDescription("Rank people, companies or repositories by activity."),
			mcp.WithNumber("limit", mcp.Description("Limit the number of entities returned.")),
			mcp.WithNumber("days", mcp.Description("Only count the last days of the range.")),
			mcp.WithString("people_out", mcp.Description("Comma separated identities to leave out, e.g. bots.")),
		}, scopeOptions()...)...,
	), h.handleGetTop)

	return s
}

// StartMCPServer starts the grimoire MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, runner Runner) error {
	s := NewMCPServer(baseCfg, runner)
	return server.ServeStdio(s)
}
