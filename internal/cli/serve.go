package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/metrics"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg := opts.config
	info := opts.info

	// The server logs in the configured format rather than the CLI's
	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger.Init(level, cfg.Logging.Format)
	logger.Info("Starting EcoScan",
		"version", info.Version,
		"build_time", info.BuildTime,
		"git_commit", info.GitCommit,
	)

	if err := metrics.Init(cfg.Metrics.Enabled, info.Version); err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize metrics", err)
	}
	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	a, err := opts.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Router(info),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return WrapExitError(ExitCommandError, "HTTP server failed", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
	return nil
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
