package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config aggregates process configuration read from the environment.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Routing  Routing
	Notifier Notifier
	Outbox   Outbox
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"CORRESPONDENCE_ADDR,default=:8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Database selects the storage backend. An empty URL runs the service on
// in-memory stores.
type Database struct {
	URL          string        `env:"DATABASE_URL"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	TxTimeout    time.Duration `env:"DATABASE_TX_TIMEOUT,default=5s"`
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE,default=10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS,default=2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT,default=5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT,default=3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT,default=3s"`
}

// Kafka configures the broker carrying procedure events. Without brokers the
// outbox relay hands events to the in-process notification consumer.
type Kafka struct {
	Brokers    []string `env:"KAFKA_BROKERS"`
	Topic      string   `env:"KAFKA_TOPIC,default=procedure-events"`
	Group      string   `env:"KAFKA_GROUP,default=correspondence-notifier"`
	Partitions int      `env:"KAFKA_PARTITIONS,default=3"`
}

// Routing holds communication routing rules.
type Routing struct {
	AutoRejectDays int `env:"AUTO_REJECT_DAYS,default=5"`
}

// Notifier configures the outbound messaging gateway and its dedup ledger.
type Notifier struct {
	URL        string  `env:"NOTIFIER_URL"`
	Token      string  `env:"NOTIFIER_TOKEN"`
	RatePerSec float64 `env:"NOTIFIER_RATE,default=1"`
	Ledger     string  `env:"NOTIFICATION_LEDGER,default=postgres"`
}

// Outbox configures the relay schedule.
type Outbox struct {
	Schedule  string        `env:"OUTBOX_SCHEDULE,default=@every 2s"`
	PurgeAt   string        `env:"OUTBOX_PURGE_SCHEDULE,default=@hourly"`
	Retention time.Duration `env:"OUTBOX_RETENTION,default=168h"`
	BatchSize int           `env:"OUTBOX_BATCH_SIZE,default=100"`
}

// Load reads optional dotenv files and decodes the environment into Config.
// Missing dotenv files are ignored.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Routing.AutoRejectDays < 0 {
		return fmt.Errorf("AUTO_REJECT_DAYS must not be negative")
	}
	switch c.Notifier.Ledger {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("NOTIFICATION_LEDGER must be postgres, redis or memory, got %q", c.Notifier.Ledger)
	}
	if c.Notifier.Ledger == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("NOTIFICATION_LEDGER=redis requires REDIS_URL")
	}
	return nil
}

// InMemory reports whether the process runs without a database.
func (c Config) InMemory() bool {
	return c.Database.URL == ""
}
