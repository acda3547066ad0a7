// Package main pushes candidate token ids into the tracker's new-token feed.
//
// Ids come from the command line or, when none are given, one per line on stdin:
//
//	feedctl -kind redis -key tokens:new So11111111111111111111111111111111111111112
//	cat mints.txt | feedctl -kind kafka -brokers localhost:9092
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"solana-price-tracker/internal/config"
	"solana-price-tracker/internal/feed"
	"solana-price-tracker/internal/sink"
)

// pusher delivers one encoded feed record.
type pusher interface {
	Push(ctx context.Context, payload []byte) error
	Close() error
}

type redisPusher struct {
	client *redis.Client
	key    string
}

func (p *redisPusher) Push(ctx context.Context, payload []byte) error {
	// the tracker pops from the right
	return p.client.LPush(ctx, p.key, payload).Err()
}

func (p *redisPusher) Close() error { return p.client.Close() }

type kafkaPusher struct {
	producer sarama.SyncProducer
	topic    string
}

func (p *kafkaPusher) Push(_ context.Context, payload []byte) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

func (p *kafkaPusher) Close() error { return p.producer.Close() }

func main() {
	kind := flag.String("kind", envOr("FEED_KIND", config.FeedKindRedis), "Feed kind: redis or kafka")
	redisAddr := flag.String("redis-addr", envOr("FEED_REDIS_ADDR", "localhost:6379"), "Redis address")
	key := flag.String("key", envOr("FEED_REDIS_KEY", "tokens:new"), "Redis list key")
	brokers := flag.String("brokers", envOr("FEED_KAFKA_BROKERS", "localhost:9092"), "Comma-separated Kafka brokers")
	topic := flag.String("topic", envOr("FEED_KAFKA_TOPIC", "tokens.new"), "Kafka topic")
	format := flag.String("format", "mint", "Record format: mint ({\"mint\": id}), identifier ({\"identifier\": id}) or raw")
	validate := flag.Bool("validate", false, "Skip ids that are not valid mint addresses")
	timeout := flag.Duration("timeout", 5*time.Second, "Timeout per push")
	flag.Parse()

	logger, err := config.NewLogger(config.Log{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var p pusher
	switch *kind {
	case config.FeedKindRedis:
		p = &redisPusher{client: redis.NewClient(&redis.Options{Addr: *redisAddr}), key: *key}
	case config.FeedKindKafka:
		producer, err := sink.NewKafkaProducer(strings.Split(*brokers, ","))
		if err != nil {
			logger.Fatal("kafka producer", zap.Error(err))
		}
		p = &kafkaPusher{producer: producer, topic: *topic}
	default:
		logger.Fatal("unsupported feed kind", zap.String("kind", *kind))
	}
	defer p.Close()

	var src io.Reader = os.Stdin
	if flag.NArg() > 0 {
		src = strings.NewReader(strings.Join(flag.Args(), "\n"))
	}

	pushed, skipped, err := pushAll(context.Background(), p, src, *format, *validate, *timeout, logger)
	if err != nil {
		logger.Fatal("push failed", zap.Int("pushed", pushed), zap.Error(err))
	}
	logger.Info("done", zap.Int("pushed", pushed), zap.Int("skipped", skipped))
}

// pushAll sends every non-empty line of r as one feed record.
func pushAll(ctx context.Context, p pusher, r io.Reader, format string, validate bool, timeout time.Duration, logger *zap.Logger) (pushed, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id := feed.Normalize(scanner.Text())
		if id == "" {
			continue
		}
		if validate {
			if err := feed.ValidateMint(id); err != nil {
				logger.Warn("skipping id", zap.String("id", string(id)), zap.Error(err))
				skipped++
				continue
			}
		}

		payload, err := encode(string(id), format)
		if err != nil {
			return pushed, skipped, err
		}

		pushCtx, cancel := context.WithTimeout(ctx, timeout)
		err = p.Push(pushCtx, payload)
		cancel()
		if err != nil {
			return pushed, skipped, fmt.Errorf("push %s: %w", id, err)
		}
		pushed++
	}
	return pushed, skipped, scanner.Err()
}

func encode(id, format string) ([]byte, error) {
	switch format {
	case "mint":
		return json.Marshal(map[string]string{"mint": id})
	case "identifier":
		return json.Marshal(map[string]string{"identifier": id})
	case "raw":
		return []byte(id), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
