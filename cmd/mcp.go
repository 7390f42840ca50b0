package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/huangsam/grimoire/core"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/internal/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveMetrics exposes the Prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			contract.LogWarn("Metrics endpoint stopped", err)
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
}

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Grimoire MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents list metrics and compute
aggregates, time series and top lists with standard tools.

The flags given here are the defaults of every tool call.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr, stdio carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(rootCtx)
		defer cancel()

		rt, err := core.NewRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()

		if cfg.MetricsAddr != "" {
			serveMetrics(ctx, cfg.MetricsAddr)
		}
		return mcp.StartMCPServer(ctx, cfg, rt)
	},
}
