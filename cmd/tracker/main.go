// Package main runs the price tracker: it admits new tokens from a feed, polls
// their prices every tick and emits change snapshots to the configured sinks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"solana-price-tracker/internal/admission"
	"solana-price-tracker/internal/app"
	"solana-price-tracker/internal/changes"
	"solana-price-tracker/internal/config"
	"solana-price-tracker/internal/feed"
	"solana-price-tracker/internal/fetcher"
	"solana-price-tracker/internal/httpapi"
	"solana-price-tracker/internal/journal"
	"solana-price-tracker/internal/jupiter"
	"solana-price-tracker/internal/ratelimit"
	"solana-price-tracker/internal/registry"
	"solana-price-tracker/internal/sink"
	"solana-price-tracker/internal/storage"
	"solana-price-tracker/internal/storage/memory"
	pgstore "solana-price-tracker/internal/storage/postgres"
	"solana-price-tracker/internal/tracker"
	"solana-price-tracker/internal/workpool"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (env only when empty)")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before the config")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for /metrics, /status and /ws (overrides http.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		cfg.HTTP.Addr = *metricsAddr
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("tracker stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	horizons, err := cfg.ParsedHorizons()
	if err != nil {
		return err
	}

	// Lifecycle journal
	var lifecycle storage.LifecycleStore = memory.NewLifecycleStore()
	if cfg.Journal.Enabled {
		pool, err := pgstore.NewPool(ctx, cfg.Journal.PostgresDSN, cfg.Journal.MaxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		applied, err := pool.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		lifecycle = pgstore.NewLifecycleStore(pool)
		logger.Info("lifecycle journal on postgres", zap.Int("migrations_applied", applied))
	}
	jrnl := journal.New(lifecycle, journal.Options{
		Buffer:        cfg.Journal.Buffer,
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		Logger:        logger,
	})

	// Core state and price source
	reg := registry.New(registry.Options{
		Capacity:   cfg.Registry.Capacity,
		Retention:  cfg.Registry.Retention,
		MaxRetries: cfg.Registry.MaxRetries,
		RetryDelay: cfg.Admission.RetryDelay,
	})

	proxy, err := cfg.PriceAPI.Proxy()
	if err != nil {
		return err
	}
	client := jupiter.NewClient(cfg.PriceAPI.BaseURL,
		jupiter.WithTimeout(cfg.PriceAPI.Timeout),
		jupiter.WithProxy(proxy),
		jupiter.WithUserAgent(cfg.PriceAPI.UserAgent),
		jupiter.WithMaxAttempts(cfg.PriceAPI.MaxAttempts),
		jupiter.WithBackoff(cfg.PriceAPI.BackoffStep, cfg.PriceAPI.BackoffCap),
		jupiter.WithLimiter(ratelimit.NewIntervalLimiter(cfg.PriceAPI.CallDelay)),
		jupiter.WithLogger(logger),
	)

	pool := workpool.New(workpool.Options{
		Workers:   cfg.Fetcher.Workers,
		QueueSize: cfg.Fetcher.QueueSize,
		Logger:    logger,
	})
	closers = append(closers, func() {
		if err := pool.Shutdown(cfg.Fetcher.ShutdownTimeout); err != nil {
			logger.Warn("worker pool shutdown", zap.Error(err))
		}
	})

	controller := admission.NewController(reg, client, pool, admission.Options{
		PollInterval: cfg.Admission.PollInterval,
		Recorder:     jrnl,
		Logger:       logger,
	})
	scheduler := fetcher.NewScheduler(reg, client, pool, fetcher.Options{
		BatchSize: cfg.Fetcher.BatchSize,
		Logger:    logger,
	})

	// Outputs
	outs, err := buildOutputs(ctx, cfg, horizons, logger)
	if err != nil {
		return err
	}
	closers = append(closers, outs.close...)

	builder := sink.NewBuilder(reg, changes.NewCalculator(reg, horizons), nil)
	loop := tracker.New(reg, scheduler, builder, outs.sink, tracker.Options{
		Interval:         cfg.Tracker.Interval,
		MinSleep:         cfg.Tracker.MinSleep,
		PurgeProbability: cfg.Tracker.PurgeProbability,
		Recorder:         jrnl,
		Logger:           logger,
	})

	source, closeSource, err := buildSource(cfg, feed.NewHandler(controller, cfg.Feed.ValidateMints, logger), logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeSource)

	httpOpts := httpapi.Options{
		Status: func() httpapi.StatusResponse {
			st := reg.Stats()
			resp := httpapi.StatusResponse{
				Active:      st.Active,
				Pending:     st.Pending,
				Points:      st.Points,
				QueuedTasks: pool.Queued(),
			}
			if outs.hub != nil {
				resp.WSClients = outs.hub.Clients()
			}
			return resp
		},
		Snapshot:  outs.latest,
		Lifecycle: lifecycle,
		Logger:    logger,
	}
	if outs.hub != nil {
		httpOpts.Stream = outs.hub
	}
	if outs.archive != nil {
		httpOpts.Archive = outs.archive
	}

	group := app.NewApp().
		WithService(app.Interrupter{}).
		WithService(httpapi.New(cfg.HTTP.Addr, httpOpts)).
		WithService(jrnl).
		WithService(controller).
		WithService(loop).
		WithService(source)
	if outs.publisher != nil {
		group.WithService(outs.publisher)
	}

	logger.Info("price tracker started",
		zap.String("feed", cfg.Feed.Kind),
		zap.Int("capacity", cfg.Registry.Capacity),
		zap.Duration("interval", cfg.Tracker.Interval),
		zap.Int("horizons", len(horizons)),
	)

	err = group.Run(ctx)
	if errors.Is(err, app.ErrInterrupted) {
		logger.Info("received shutdown signal", zap.Error(err))
		return nil
	}
	return err
}

// buildSource returns the configured feed and a func releasing its client.
func buildSource(cfg *config.Config, handler *feed.Handler, logger *zap.Logger) (feed.Source, func(), error) {
	noop := func() {}
	switch cfg.Feed.Kind {
	case config.FeedKindKafka:
		// the source closes its consumer group when Run returns
		src, err := feed.NewKafkaSource(cfg.Feed.Kafka.Brokers, cfg.Feed.Kafka.Topic, cfg.Feed.Kafka.Group, handler, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("kafka feed: %w", err)
		}
		return src, noop, nil
	case config.FeedKindStdin:
		return feed.NewLineSource(os.Stdin, handler, logger), noop, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Feed.Redis.Addr,
			Password: cfg.Feed.Redis.Password,
			DB:       cfg.Feed.Redis.DB,
		})
		return feed.NewRedisSource(client, cfg.Feed.Redis.Key, handler, logger), func() { client.Close() }, nil
	}
}
