package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager()
	var months *cache.LRUCache[[]core.History]
	if cfg.CacheSize > 0 {
		months = cache.NewLRUCache[[]core.History](cfg.CacheSize, cfg.CacheTTL)
		caches.Register("history_months", months)
		caches.StartCleanup(cfg.CacheTTL)
	}

	srv := apphttp.NewServer(
		apphttp.Options{
			Addr:               cfg.Addr(),
			RequestTimeout:     cfg.RequestTimeout,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			Logger:             logger,
		},
		services.NewLedgerService(res.Store),
		services.NewHistoryService(res.Store, res.Publisher(), months),
		res.Store,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", res.Broker != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, shutdownTimeout, func(ctx context.Context) error {
			caches.Stop()
			return errors.Join(srv.Shutdown(ctx), res.Cleanup())
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
