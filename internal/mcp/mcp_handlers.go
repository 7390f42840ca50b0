package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	runner  Runner
}

// requestConfig clones the base config and applies the request arguments.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.RunID = uuid.NewString()
	o := contract.Overrides{
		Source:    request.GetString("source", ""),
		Metrics:   request.GetString("metrics", ""),
		Period:    request.GetString("period", ""),
		Start:     request.GetString("start", ""),
		End:       request.GetString("end", ""),
		Dimension: request.GetString("dimension", ""),
		Value:     request.GetString("value", ""),
		PeopleOut: request.GetString("people_out", ""),
		Limit:     request.GetInt("limit", 0),
		Days:      request.GetInt("days", 0),
	}
	if err := contract.RevalidateOverrides(cfg, o, time.Now()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *toolHandler) runReport(ctx context.Context, kind schema.ReportKind, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	report, err := h.runner.Run(ctx, kind, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s report failed: %v", kind, err)), nil
	}

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListMetrics(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := h.baseCfg.Source
	if s := request.GetString("source", ""); s != "" {
		src = schema.DataSource(s)
		if _, ok := schema.ValidDataSources[src]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid source '%s'", s)), nil
		}
	}

	infos := h.runner.Catalog().Infos(src)
	jsonData, _ := json.MarshalIndent(infos, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetAggregate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runReport(ctx, schema.AggregateReport, request)
}

func (h *toolHandler) handleGetTimeseries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runReport(ctx, schema.TimeSeriesReport, request)
}

func (h *toolHandler) handleGetTop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.runReport(ctx, schema.TopListReport, request)
}
