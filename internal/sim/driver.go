package sim

import (
	"context"
	"log/slog"
	"time"

	"dynastra/internal/game"
)

// Driver runs one simulation concern on its own cadence. A failing tick is
// logged and the loop keeps going; only context cancellation stops it.
type Driver struct {
	Name     string
	Interval time.Duration
	Tick     func(ctx context.Context) error

	log *slog.Logger
}

func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	d.log.Info("driver started", "driver", d.Name, "interval", d.Interval.String())
	for {
		select {
		case <-ctx.Done():
			d.log.Info("driver stopped", "driver", d.Name)
			return ctx.Err()
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.log.Error("tick failed", "driver", d.Name, "err", err)
			}
		}
	}
}

// RunOnce executes a single tick, for the worker's run-once mode.
func (d *Driver) RunOnce(ctx context.Context) error {
	return d.Tick(ctx)
}

type Config struct {
	AgingEvery     time.Duration
	MortalityEvery time.Duration
	EventsEvery    time.Duration
	ExpiryEvery    time.Duration
	SnapshotEvery  time.Duration
	WealthEvery    time.Duration
}

// Drivers builds the simulation loops over one game service.
func Drivers(svc *game.Service, logger *slog.Logger, cfg Config) []*Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return []*Driver{
		{
			Name:     "aging",
			Interval: cfg.AgingEvery,
			log:      logger,
			Tick: func(ctx context.Context) error {
				aged, died, err := svc.RunAgingTick(ctx)
				if err != nil {
					return err
				}
				logger.Info("aging tick complete", "aged", aged, "deaths", died)
				return nil
			},
		},
		{
			Name:     "mortality",
			Interval: cfg.MortalityEvery,
			log:      logger,
			Tick: func(ctx context.Context) error {
				_, err := svc.RunMortalityTick(ctx)
				return err
			},
		},
		{
			Name:     "market-events",
			Interval: cfg.EventsEvery,
			log:      logger,
			Tick:     svc.RunEventTick,
		},
		{
			Name:     "listing-expiry",
			Interval: cfg.ExpiryEvery,
			log:      logger,
			Tick: func(ctx context.Context) error {
				_, err := svc.ExpireListings(ctx)
				return err
			},
		},
		{
			Name:     "price-snapshots",
			Interval: cfg.SnapshotEvery,
			log:      logger,
			Tick: func(ctx context.Context) error {
				_, err := svc.RunPriceSnapshotTick(ctx)
				return err
			},
		},
		{
			Name:     "wealth-snapshots",
			Interval: cfg.WealthEvery,
			log:      logger,
			Tick: func(ctx context.Context) error {
				_, err := svc.RunWealthSnapshotTick(ctx)
				return err
			},
		},
	}
}
