package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/studypal/pkg/controller/http"
	"github.com/secmon-lab/studypal/pkg/service/worker"
	"github.com/secmon-lab/studypal/pkg/utils/async"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var enableMetrics bool
	var rehydrate bool
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":5000",
			Sources:     cli.EnvVars("STUDYPAL_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Serve Prometheus metrics on /metrics",
			Value:       true,
			Sources:     cli.EnvVars("STUDYPAL_METRICS"),
			Destination: &enableMetrics,
		},
		&cli.BoolFlag{
			Name:        "rehydrate",
			Usage:       "Re-index every stored note at startup",
			Value:       true,
			Sources:     cli.EnvVars("STUDYPAL_REHYDRATE"),
			Destination: &rehydrate,
		},
	}

	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var m *metrics.Collector
			if enableMetrics {
				m = metrics.New()
			}

			a, err := appCfg.build(ctx, m)
			if err != nil {
				return err
			}
			defer a.Close()

			if rehydrate {
				async.Dispatch(ctx, func(ctx context.Context) error {
					ids, err := a.uc.Note.Rehydrate(ctx)
					if err != nil {
						return goerr.Wrap(err, "failed to rehydrate notes")
					}
					logging.From(ctx).Info("Rehydrating stored notes", "tasks", len(ids))
					return nil
				})
			}

			sweeper := worker.NewTaskSweeper(a.tasks, time.Minute, appCfg.retrieval.TaskRetention())
			if err := sweeper.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start task sweeper")
			}

			var httpOpts []httpctrl.Options
			if m != nil {
				httpOpts = append(httpOpts, httpctrl.WithMetrics(m))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(a.uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "metrics", enableMetrics)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				sweeper.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				sweeper.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				// In-flight indexing tasks finish before the repository is closed
				if err := a.tasks.Shutdown(shutdownCtx); err != nil {
					logging.Default().Warn("background tasks did not finish before shutdown", "error", err.Error())
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
