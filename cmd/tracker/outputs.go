package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"solana-price-tracker/internal/config"
	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/sink"
	"solana-price-tracker/internal/storage"
	chstore "solana-price-tracker/internal/storage/clickhouse"
)

// outputs holds the snapshot sinks built from config.
type outputs struct {
	sink      *sink.Sink
	latest    *sink.Latest
	publisher *sink.AsyncPublisher // nil without downstream publishers
	hub       *sink.Hub
	archive   storage.SnapshotArchive
	close     []func()
}

func buildOutputs(ctx context.Context, cfg *config.Config, horizons []domain.Horizon, logger *zap.Logger) (*outputs, error) {
	out := &outputs{latest: &sink.Latest{}}
	var publishers []sink.Publisher

	if cfg.Sink.Websocket {
		out.hub = sink.NewHub(logger)
		out.close = append(out.close, out.hub.Close)
		publishers = append(publishers, out.hub)
	}

	if cfg.Sink.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Sink.Redis.Addr,
			Password: cfg.Sink.Redis.Password,
			DB:       cfg.Sink.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis sink: %w", err)
		}
		out.close = append(out.close, func() { client.Close() })
		publishers = append(publishers, sink.NewRedisPublisher(client, cfg.Sink.Redis.Key, cfg.Sink.Redis.MaxLen))
	}

	if cfg.Sink.Kafka.Enabled {
		producer, err := sink.NewKafkaProducer(cfg.Sink.Kafka.Brokers)
		if err != nil {
			return nil, fmt.Errorf("kafka sink: %w", err)
		}
		pub := sink.NewKafkaPublisher(producer, cfg.Sink.Kafka.Topic)
		out.close = append(out.close, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close kafka producer", zap.Error(err))
			}
		})
		publishers = append(publishers, pub)
	}

	if cfg.Sink.ClickHouse.Enabled {
		conn, err := chstore.OpenArchive(ctx, cfg.Sink.ClickHouse.DSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse archive: %w", err)
		}
		out.close = append(out.close, func() { conn.Close() })
		archive := chstore.NewSnapshotArchive(conn)
		out.archive = archive
		publishers = append(publishers, sink.NewArchivePublisher(archive))
	}

	if len(publishers) > 0 {
		out.publisher = sink.NewAsyncPublisher(publishers, sink.AsyncPublisherOptions{
			QueueSize: cfg.Sink.QueueSize,
			Timeout:   cfg.Sink.PublishTimeout,
			Logger:    logger,
		})
	}

	opts := sink.Options{
		Latest:    out.latest,
		Publisher: out.publisher,
		Logger:    logger,
	}
	if cfg.Sink.Console {
		opts.Console = sink.NewConsole(os.Stdout, horizons, cfg.Sink.ConsoleLimit)
	}
	if cfg.Sink.File != "" {
		opts.File = sink.NewFileWriter(cfg.Sink.File)
	}
	out.sink = sink.New(opts)

	return out, nil
}
