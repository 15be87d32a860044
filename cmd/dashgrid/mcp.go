package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/incari/dashgrid/internal/adapters/factory"
	mcpAdapter "github.com/incari/dashgrid/internal/adapters/mcp"
	"github.com/incari/dashgrid/internal/config"
	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/placement"
	"github.com/incari/dashgrid/pkg/reconcile"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts dashgrid as an MCP server, exposing the layout as tools
(get_layout, move_item, reorder_sections) for AI agents.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}

		// Logs must not corrupt JSON-RPC on stdout.
		log.SetOutput(os.Stderr)
		logger := logging.New(slog.LevelInfo)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gateway, closeGateway, err := factory.New(ctx, cfg.Store)
		if err != nil {
			log.Fatalf("Error building store backend: %v", err)
		}
		defer closeGateway()

		store := placement.New(placement.WithLogger(logger))
		engine := reconcile.NewEngine(store, gateway, reconcile.WithLogger(logger))
		sections := reconcile.NewSectionOrderController(engine)

		if err := engine.Load(ctx); err != nil {
			logger.Warn("initial layout load failed, starting empty", "err", err)
		}

		srv := mcpAdapter.NewServer(engine, sections, Version)
		switch transport {
		case "stdio":
			logger.Info("starting dashgrid MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("starting dashgrid MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					logger.Error("MCP server execution failed", "err", err)
					os.Exit(1)
				}
			}
			logger.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8090, "Port to listen on (only for SSE)")
}
