// Package config loads tracker settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"solana-price-tracker/internal/domain"
)

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // console | json
}

type HTTP struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR" env-default:":9090"`
}

type Tracker struct {
	Interval         time.Duration `yaml:"interval" env:"TRACKER_INTERVAL" env-default:"3s"`
	MinSleep         time.Duration `yaml:"min_sleep" env:"TRACKER_MIN_SLEEP" env-default:"100ms"`
	PurgeProbability float64       `yaml:"purge_probability" env:"TRACKER_PURGE_PROBABILITY" env-default:"0.05"`
}

type Registry struct {
	Capacity   int           `yaml:"capacity" env:"REGISTRY_CAPACITY" env-default:"1500"`
	Retention  time.Duration `yaml:"retention" env:"REGISTRY_RETENTION" env-default:"24h"`
	MaxRetries int           `yaml:"max_retries" env:"REGISTRY_MAX_RETRIES" env-default:"6"`
}

type Admission struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"ADMISSION_POLL_INTERVAL" env-default:"100ms"`
	RetryDelay   time.Duration `yaml:"retry_delay" env:"ADMISSION_RETRY_DELAY" env-default:"1s"`
}

type Fetcher struct {
	BatchSize       int           `yaml:"batch_size" env:"FETCHER_BATCH_SIZE" env-default:"99"`
	Workers         int           `yaml:"workers" env:"FETCHER_WORKERS" env-default:"50"`
	QueueSize       int           `yaml:"queue_size" env:"FETCHER_QUEUE_SIZE" env-default:"100"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"FETCHER_SHUTDOWN_TIMEOUT" env-default:"1s"`
}

type PriceAPI struct {
	BaseURL     string        `yaml:"base_url" env:"PRICE_API_BASE_URL" env-default:"https://lite-api.jup.ag/price/v2"`
	Timeout     time.Duration `yaml:"timeout" env:"PRICE_API_TIMEOUT" env-default:"10s"`
	CallDelay   time.Duration `yaml:"call_delay" env:"PRICE_API_CALL_DELAY" env-default:"40ms"`
	MaxAttempts int           `yaml:"max_attempts" env:"PRICE_API_MAX_ATTEMPTS" env-default:"2"`
	BackoffStep time.Duration `yaml:"backoff_step" env:"PRICE_API_BACKOFF_STEP" env-default:"500ms"`
	BackoffCap  time.Duration `yaml:"backoff_cap" env:"PRICE_API_BACKOFF_CAP" env-default:"2s"`
	UserAgent   string        `yaml:"user_agent" env:"PRICE_API_USER_AGENT" env-default:"JupiterPriceTracker/4.0"`
	ProxyURL    string        `yaml:"proxy_url" env:"PRICE_API_PROXY_URL"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type FeedRedis struct {
	Redis `yaml:",inline" env-prefix:"FEED_"`
	Key   string `yaml:"key" env:"FEED_REDIS_KEY" env-default:"tokens:new"`
}

type FeedKafka struct {
	Brokers []string `yaml:"brokers" env:"FEED_KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"FEED_KAFKA_TOPIC" env-default:"tokens.new"`
	Group   string   `yaml:"group" env:"FEED_KAFKA_GROUP" env-default:"price-tracker"`
}

// Feed kinds.
const (
	FeedKindRedis = "redis"
	FeedKindKafka = "kafka"
	FeedKindStdin = "stdin"
)

type Feed struct {
	Kind          string    `yaml:"kind" env:"FEED_KIND" env-default:"redis"`
	ValidateMints bool      `yaml:"validate_mints" env:"FEED_VALIDATE_MINTS"`
	Redis         FeedRedis `yaml:"redis"`
	Kafka         FeedKafka `yaml:"kafka"`
}

type SinkRedis struct {
	Enabled bool   `yaml:"enabled" env:"SINK_REDIS_ENABLED" env-default:"false"`
	Redis   `yaml:",inline" env-prefix:"SINK_"`
	Key     string `yaml:"key" env:"SINK_REDIS_KEY" env-default:"prices:snapshots"`
	MaxLen  int64  `yaml:"max_len" env:"SINK_REDIS_MAX_LEN" env-default:"100"`
}

type SinkKafka struct {
	Enabled bool     `yaml:"enabled" env:"SINK_KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"SINK_KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"SINK_KAFKA_TOPIC" env-default:"prices.snapshots"`
}

type SinkClickHouse struct {
	Enabled bool   `yaml:"enabled" env:"SINK_CLICKHOUSE_ENABLED" env-default:"false"`
	DSN     string `yaml:"dsn" env:"SINK_CLICKHOUSE_DSN"`
}

type Sink struct {
	Console        bool           `yaml:"console" env:"SINK_CONSOLE"`
	ConsoleLimit   int            `yaml:"console_limit" env:"SINK_CONSOLE_LIMIT" env-default:"0"`
	File           string         `yaml:"file" env:"SINK_FILE" env-default:"token_prices.json"`
	QueueSize      int            `yaml:"queue_size" env:"SINK_QUEUE_SIZE" env-default:"16"`
	PublishTimeout time.Duration  `yaml:"publish_timeout" env:"SINK_PUBLISH_TIMEOUT" env-default:"2s"`
	Websocket      bool           `yaml:"websocket" env:"SINK_WEBSOCKET"`
	Redis          SinkRedis      `yaml:"redis"`
	Kafka          SinkKafka      `yaml:"kafka"`
	ClickHouse     SinkClickHouse `yaml:"clickhouse"`
}

type Journal struct {
	Enabled       bool          `yaml:"enabled" env:"JOURNAL_ENABLED" env-default:"false"`
	PostgresDSN   string        `yaml:"postgres_dsn" env:"JOURNAL_POSTGRES_DSN"`
	MaxConns      int32         `yaml:"max_conns" env:"JOURNAL_MAX_CONNS" env-default:"4"`
	Buffer        int           `yaml:"buffer" env:"JOURNAL_BUFFER" env-default:"1024"`
	BatchSize     int           `yaml:"batch_size" env:"JOURNAL_BATCH_SIZE" env-default:"100"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"JOURNAL_FLUSH_INTERVAL" env-default:"1s"`
}

// Config is the complete tracker configuration.
type Config struct {
	Log       Log       `yaml:"log"`
	HTTP      HTTP      `yaml:"http"`
	Tracker   Tracker   `yaml:"tracker"`
	Registry  Registry  `yaml:"registry"`
	Admission Admission `yaml:"admission"`
	Fetcher   Fetcher   `yaml:"fetcher"`
	PriceAPI  PriceAPI  `yaml:"price_api"`
	Horizons  []string  `yaml:"horizons" env:"HORIZONS" env-default:"2s,5s,10s,30s,1m,2m,5m,10m"`
	Feed      Feed      `yaml:"feed"`
	Sink      Sink      `yaml:"sink"`
	Journal   Journal   `yaml:"journal"`
}

// Load reads an optional .env file, then path (if set) and the environment.
// Environment variables override file values.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// env-default cannot express a true default that a file may turn off
	cfg := Config{
		Feed: Feed{ValidateMints: true},
		Sink: Sink{Console: true, Websocket: true},
	}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the tracker cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	_, err := zapcore.ParseLevel(c.Log.Level)
	check(err == nil, "log.level: unknown level %q", c.Log.Level)
	check(c.Log.Format == "console" || c.Log.Format == "json", "log.format: must be console or json, got %q", c.Log.Format)

	check(c.Tracker.Interval > 0, "tracker.interval: must be positive")
	check(c.Tracker.MinSleep >= 0, "tracker.min_sleep: must not be negative")
	check(c.Tracker.PurgeProbability >= 0 && c.Tracker.PurgeProbability <= 1, "tracker.purge_probability: must be within [0, 1]")

	check(c.Registry.Capacity > 0, "registry.capacity: must be positive")
	check(c.Registry.Retention > 0, "registry.retention: must be positive")
	check(c.Registry.MaxRetries > 0, "registry.max_retries: must be positive")
	check(c.Admission.RetryDelay >= 0, "admission.retry_delay: must not be negative")

	check(c.Fetcher.BatchSize > 0, "fetcher.batch_size: must be positive")
	check(c.Fetcher.Workers > 0, "fetcher.workers: must be positive")
	check(c.Fetcher.QueueSize > 0, "fetcher.queue_size: must be positive")

	u, err := url.Parse(c.PriceAPI.BaseURL)
	check(err == nil && u.Scheme != "" && u.Host != "", "price_api.base_url: invalid url %q", c.PriceAPI.BaseURL)
	if c.PriceAPI.ProxyURL != "" {
		_, err := c.PriceAPI.Proxy()
		check(err == nil, "price_api.proxy_url: %v", err)
	}
	check(c.PriceAPI.MaxAttempts > 0, "price_api.max_attempts: must be positive")
	check(c.PriceAPI.CallDelay >= 0, "price_api.call_delay: must not be negative")

	_, err = c.ParsedHorizons()
	check(err == nil, "horizons: %v", err)

	switch c.Feed.Kind {
	case FeedKindRedis, FeedKindStdin:
	case FeedKindKafka:
		check(len(c.Feed.Kafka.Brokers) > 0, "feed.kafka.brokers: required for kafka feed")
	default:
		errs = append(errs, fmt.Errorf("feed.kind: unknown kind %q", c.Feed.Kind))
	}

	check(c.Sink.QueueSize > 0, "sink.queue_size: must be positive")
	check(!c.Sink.Kafka.Enabled || len(c.Sink.Kafka.Brokers) > 0, "sink.kafka.brokers: required when enabled")
	check(!c.Sink.ClickHouse.Enabled || c.Sink.ClickHouse.DSN != "", "sink.clickhouse.dsn: required when enabled")
	check(!c.Journal.Enabled || c.Journal.PostgresDSN != "", "journal.postgres_dsn: required when enabled")

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParsedHorizons returns the configured lookback horizons.
func (c *Config) ParsedHorizons() ([]domain.Horizon, error) {
	if len(c.Horizons) == 0 {
		return domain.DefaultHorizons, nil
	}
	return domain.ParseHorizons(c.Horizons)
}

// Proxy returns the parsed proxy url, or nil when none is configured.
func (p PriceAPI) Proxy() (*url.URL, error) {
	if p.ProxyURL == "" {
		return nil, nil
	}
	u, err := url.Parse(p.ProxyURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy url %q needs scheme and host", p.ProxyURL)
	}
	return u, nil
}
