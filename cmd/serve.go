package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/be4breach/reportd/internal/api"
	"github.com/be4breach/reportd/internal/cache"
	"github.com/be4breach/reportd/internal/database"
	"github.com/be4breach/reportd/internal/telemetry"
	"github.com/be4breach/reportd/pkg/docx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report parsing API server",
	Long: `Serve starts the HTTP API consumed by the dashboard frontend:
report upload and parsing, stored report listing and retrieval, and a
health endpoint. Persistence and caching degrade gracefully when their
backends are unreachable.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "host to bind to")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		log.Warnw("Telemetry disabled", "error", err)
	} else {
		defer tel.Close()
	}

	parser := docx.NewParser(log)

	opts := []api.ServerOption{}
	if tel != nil {
		opts = append(opts, api.WithTelemetry(tel))
	}

	// The server stays up without a store or cache; uploads still parse.
	store, err := database.NewStore(cfg.Database, log)
	if err != nil {
		log.Warnw("Running without report persistence", "error", err)
	} else {
		defer store.Close()
		opts = append(opts, api.WithStore(store))
	}

	if cfg.Redis.Enabled {
		reportCache, err := cache.New(cfg.Redis, log)
		if err != nil {
			log.Warnw("Running without report cache", "error", err)
		} else {
			defer reportCache.Close()
			opts = append(opts, api.WithCache(reportCache))
		}
	}

	server := api.NewServer(cfg, log, parser, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("Shutdown complete")
	return nil
}
