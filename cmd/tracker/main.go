package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tokenwatch/config"
	"tokenwatch/internal/collector"
	"tokenwatch/internal/dashboard"
	"tokenwatch/internal/market/analytics"
	"tokenwatch/internal/market/memorystore"
	"tokenwatch/internal/market/snapshotstore"
	"tokenwatch/logger"
	"tokenwatch/pkg/jupiter"
	"tokenwatch/pkg/storage/postgres"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("tracker failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store := snapshotstore.New(cfg.Store.Path, cfg.Store.Retention, log.Named("store"))
	engine := analytics.New(store, log.Named("analytics"))
	reports := memorystore.NewReportStore()
	hub := dashboard.NewHub(log.Named("ws"))
	fetcher := jupiter.NewRESTClient(cfg.Jupiter.BaseURL, cfg.Jupiter.Timeout)

	opts := []collector.Option{collector.WithPublisher(hub)}
	var serverOpts []dashboard.Option
	if cfg.Postgres.Enabled {
		pg, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			// the file store stays authoritative; run without the mirror
			log.Error("postgres mirror disabled", zap.Error(err))
		} else {
			defer pg.Close()
			opts = append(opts, collector.WithMirror(pg))
			serverOpts = append(serverOpts, dashboard.WithHealthCheck("postgres", pg.IsHealthy))
		}
	}

	c := collector.New(*cfg, fetcher, store, engine, reports, log.Named("collector"), opts...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })
	if cfg.Dashboard.Enabled {
		srv := dashboard.NewServer(store, engine, reports, hub, log.Named("dashboard"), serverOpts...)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Dashboard.Addr) })
	}

	log.Info("tracker running",
		zap.String("store", store.Path()),
		zap.Duration("retention", store.Retention()),
		zap.Strings("tokens", cfg.Sampler.Tokens))
	return g.Wait()
}
