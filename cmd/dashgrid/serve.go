package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/incari/dashgrid/internal/adapters/factory"
	httpAdapter "github.com/incari/dashgrid/internal/adapters/http"
	"github.com/incari/dashgrid/internal/config"
	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/observability"
	"github.com/incari/dashgrid/pkg/placement"
	"github.com/incari/dashgrid/pkg/ports"
	"github.com/incari/dashgrid/pkg/reconcile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the layout HTTP server",
	Long:  `Starts the dashgrid layout service, exposing the JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		listen, _ := cmd.Flags().GetString("listen")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen = listen
		}

		logger := logging.New(parseLevel(cfg.Log.Level))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gateway, closeGateway, err := factory.New(ctx, cfg.Store)
		if err != nil {
			logger.Error("failed to build store backend", "backend", cfg.Store.Backend, "err", err)
			os.Exit(1)
		}
		defer func() {
			if err := closeGateway(); err != nil {
				logger.Warn("failed to close store backend", "err", err)
			}
		}()

		registry := prometheus.NewRegistry()
		metrics := observability.New(registry)

		store := placement.New(placement.WithLogger(logger))
		engine := reconcile.NewEngine(store, gateway,
			reconcile.WithLogger(logger),
			reconcile.WithMetrics(metrics),
		)
		sections := reconcile.NewSectionOrderController(engine)

		if err := engine.Load(ctx); err != nil {
			if serr := seedEmpty(ctx, gateway, err); serr != nil {
				logger.Error("failed to load canonical layout", "err", serr)
				os.Exit(1)
			}
			// Some backends report an empty layout as not-found even after
			// the seed; an empty store is the correct state either way.
			if err := engine.Load(ctx); err != nil && !errors.Is(err, domain.ErrLayoutNotFound) {
				logger.Error("failed to load canonical layout", "err", err)
				os.Exit(1)
			}
			logger.Info("no layout persisted yet, starting empty")
		}

		if watcher, ok := gateway.(ports.Watcher); ok {
			go followExternalChanges(ctx, watcher, engine, store, logger)
		}

		handler := httpAdapter.NewHandler(engine, sections,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsRegistry(registry),
		)
		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("dashgrid server listening", "addr", srv.Addr, "backend", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			logger.Error("server error", "err", err)
			os.Exit(1)

		case <-ctx.Done():
			logger.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete, closing", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("failed to close server", "err", err)
				}
			}
			logger.Info("dashgrid server stopped")
		}
	},
}

// seedEmpty primes a fresh backend with an empty layout so the engine can
// complete its initial load. Any other load failure is passed through.
func seedEmpty(ctx context.Context, gateway ports.Gateway, loadErr error) error {
	if !errors.Is(loadErr, domain.ErrLayoutNotFound) {
		return loadErr
	}
	seeder, ok := gateway.(ports.Seeder)
	if !ok {
		return loadErr
	}
	if err := seeder.SeedLayout(ctx, &domain.Layout{}); err != nil {
		return err
	}
	return nil
}

// followExternalChanges absorbs out-of-band CRUD events into the store,
// preserving placement invariants (removals compact their container).
func followExternalChanges(ctx context.Context, watcher ports.Watcher, engine *reconcile.Engine, store *placement.Store, logger *slog.Logger) {
	events, err := watcher.Watch(ctx)
	if err != nil {
		logger.Warn("store watcher unavailable", "err", err)
		return
	}
	for ev := range events {
		switch ev.Type {
		case domain.EventLayoutReplaced:
			if err := engine.Resync(ctx); err != nil {
				logger.Warn("resync after external change failed", "err", err)
			}
		case domain.EventItemUpserted:
			if ev.Item != nil {
				store.UpsertItem(*ev.Item)
			}
		case domain.EventItemRemoved:
			if ev.Item != nil {
				if err := store.RemoveItem(ev.Item.ID); err != nil {
					logger.Warn("failed to remove item", "item", ev.Item.ID, "err", err)
				}
			}
		case domain.EventSectionUpserted:
			if ev.Section != nil {
				store.UpsertSection(*ev.Section)
			}
		case domain.EventSectionRemoved:
			if ev.Section != nil {
				if err := store.RemoveSection(ev.Section.ID); err != nil {
					logger.Warn("failed to remove section", "section", ev.Section.ID, "err", err)
				}
			}
		}
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", ":8087", "Address to listen on")
}
