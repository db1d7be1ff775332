package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	backfill := flag.String("backfill", "", "mirror one month and exit, as serviceID:YYYY-MM")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, logger, cfg, *backfill); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}

// run owns every resource it opens, so cleanup happens before main exits.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config, backfill string) error {
	backendCfg, err := workerBackendConfig(cfg)
	if err != nil {
		return err
	}

	var q core.MonthQuery
	if backfill != "" {
		if q, err = parseBackfill(backfill); err != nil {
			return fmt.Errorf("invalid -backfill value: %w", err)
		}
	}

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	mirror, err := factory.CreateMirror(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize mirror: %w", err)
	}
	mirrorWorker := worker.NewMirrorWorker(res.Store, mirror)

	if backfill != "" {
		if _, err := mirrorWorker.Backfill(ctx, q); err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		return nil
	}

	if res.Broker == nil {
		return errors.New("AMQP_URL must point to a reachable broker to consume history events")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue)
		err := res.Broker.ConsumeHistoryEvents(gctx, mirrorWorker.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume history events: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// workerBackendConfig only accepts the shared SQLite store. A memory store
// would be empty and private to this process, so every event would look
// like a removal and wipe the mirrored rows.
func workerBackendConfig(cfg *config.Config) (backend.Config, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return backend.Config{}, err
	}
	if backendCfg.Type != backend.SQLiteBackend {
		return backend.Config{}, fmt.Errorf("ledger-worker needs DATA_BACKEND=%s to read the API's store, got %q", backend.SQLiteBackend, backendCfg.Type)
	}
	return backendCfg, nil
}

// parseBackfill reads "serviceID:YYYY-MM".
func parseBackfill(s string) (core.MonthQuery, error) {
	svc, month, ok := strings.Cut(s, ":")
	if !ok {
		return core.MonthQuery{}, fmt.Errorf("%q: want serviceID:YYYY-MM", s)
	}
	id, err := strconv.ParseInt(svc, 10, 64)
	if err != nil {
		return core.MonthQuery{}, fmt.Errorf("service id %q: %w", svc, err)
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return core.MonthQuery{}, fmt.Errorf("month %q: %w", month, err)
	}
	q := core.MonthQuery{ServiceID: id, Year: t.Year(), Month: int(t.Month())}
	return q, q.Validate()
}
