package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-diary-bot/internal/config"
	httpapi "github.com/tbourn/go-diary-bot/internal/http"
	"github.com/tbourn/go-diary-bot/internal/observability"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(cfg func() config.Config) *cobra.Command {
	var noWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the enrichment worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg(), true, !noWorker)
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "serve the API only")
	return cmd
}

func newWorkerCmd(cfg func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the enrichment worker only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg(), false, true)
		},
	}
}

// run starts the requested components and blocks until SIGINT/SIGTERM.
// In-flight batches and requests are given shutdownTimeout to finish.
func run(parent context.Context, cfg config.Config, api, work bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if work {
		sup, err := a.newSupervisor(gctx)
		if err != nil {
			return err
		}
		g.Go(func() error {
			log.Info().Int("concurrency", cfg.Worker.Concurrency).Dur("debounce", cfg.Redis.DebounceTTL).Msg("worker started")
			err := sup.Run(gctx)
			log.Info().Msg("worker stopped")
			return err
		})
		g.Go(func() error { return purgeIdempotency(gctx, a) })
	}

	if api {
		gin.SetMode(cfg.GinMode)
		r := gin.New()
		httpapi.RegisterRoutes(r, a.db, a.store, cfg)
		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		}
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// purgeIdempotency drops expired Idempotency-Key records once an hour.
func purgeIdempotency(ctx context.Context, a *app) error {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, a.db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
