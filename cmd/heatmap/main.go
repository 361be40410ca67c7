// Command heatmap captures place mentions from ranked news listings and
// compiles the snapshot history into a time-lapse heatmap.
//
// Usage:
//
//	heatmap run      # capture one snapshot, then compile
//	heatmap capture  # capture only
//	heatmap compile  # compile only
//	heatmap serve    # run every CAPTURE_INTERVAL and serve /frames
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/place-mention-heatmap/internal/adapter/http"
	"github.com/couchcryptid/place-mention-heatmap/internal/config"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		noColor bool
		output  string
	)

	// setup loads config and wires the app for a subcommand.
	setup := func(cmd *cobra.Command) (*app, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if output != "" {
			cfg.OutputPath = output
		}
		logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
		colored := !noColor && !color.NoColor
		return newApp(cmd.Context(), cfg, logger, cmd.OutOrStdout(), colored)
	}

	root := &cobra.Command{
		Use:           "heatmap",
		Short:         "Track place mentions in ranked listings and render them as a heatmap time-lapse",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored diagnostics")
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "compiled series path (overrides OUTPUT_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "capture",
		Short: "Count place mentions across all sources and save one snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.capturer.Capture(cmd.Context())
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "compile",
		Short: "Compile the snapshot history into heatmap frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.compiler.Compile(cmd.Context())
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Capture a snapshot, then compile the full history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.pipeline.RunOnce(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Capture and compile every CAPTURE_INTERVAL and serve the latest frames over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	})

	return root
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.pipeline, a.pipeline, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start capture/compile loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.pipeline.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
	return nil
}
