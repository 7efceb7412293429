package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/cli/config"
	controller "github.com/m-mizutani/paperzip/pkg/controller/http"
	"github.com/m-mizutani/paperzip/pkg/usecase"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		batchCfg  config.Batch
		fetchCfg  config.Fetch
		sentryCfg config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, batchCfg.Flags()...)
	flags = append(flags, fetchCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting paperzip server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("batch", batchCfg),
				slog.Any("fetch", fetchCfg),
				slog.Any("sentry", sentryCfg),
			)

			sentryEnabled, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			if sentryEnabled {
				defer sentry.Flush(2 * time.Second)
			}

			// Create document fetcher
			docFetcher, closeFetcher, err := fetchCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeFetcher()

			// Create use cases
			batchUC := usecase.NewBatchDownload(docFetcher, batchCfg.Options()...)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				batchUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithMaxBodyBytes(serverCfg.MaxBodyBytes),
				controller.WithSentry(sentryEnabled),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown. Batches in flight may take a while to fetch.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
