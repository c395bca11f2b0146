package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dynastra/internal/config"
	"dynastra/internal/db"
	"dynastra/internal/game"
	"dynastra/internal/sim"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := game.NewService(pool, logger)
	drivers := sim.Drivers(svc, logger, sim.Config{
		AgingEvery:     cfg.AgingEvery,
		MortalityEvery: cfg.MortalityEvery,
		EventsEvery:    cfg.EventsEvery,
		ExpiryEvery:    cfg.ExpiryEvery,
		SnapshotEvery:  cfg.SnapshotEvery,
		WealthEvery:    cfg.WealthEvery,
	})

	if cfg.RunOnce {
		for _, d := range drivers {
			if err := d.RunOnce(ctx); err != nil {
				logger.Error("tick failed", "driver", d.Name, "err", err)
				os.Exit(1)
			}
		}
		logger.Info("worker run-once completed")
		return
	}

	logger.Info("worker started",
		"aging_every", cfg.AgingEvery.String(),
		"mortality_every", cfg.MortalityEvery.String(),
		"events_every", cfg.EventsEvery.String(),
		"expiry_every", cfg.ExpiryEvery.String(),
		"snapshot_every", cfg.SnapshotEvery.String(),
		"wealth_every", cfg.WealthEvery.String(),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, d := range drivers {
		d := d
		group.Go(func() error {
			return d.Run(groupCtx)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker failed", "err", err)
		os.Exit(1)
	}
	logger.Info("worker shutdown")
}
