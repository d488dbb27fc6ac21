package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	pstrings "badgehub/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string `env:"BADGEHUB_ADDR" envDefault:":8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"badgehub"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`

	Redis   RedisConfig
	Kafka   KafkaConfig
	Checkin CheckinConfig
	Badge   BadgeConfig
	Ranking RankingConfig
	Outbox  OutboxConfig
	Tracing TracingConfig
}

// RedisConfig configures the optional ranking cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the outbox publisher. No brokers means entries stay
// in the outbox unpublished.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"badgehub.events"`
	// Partitions and ReplicationFactor apply only when the topic is created
	// at startup.
	Partitions        int32 `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16 `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
}

// CheckinConfig holds admission tuning.
type CheckinConfig struct {
	SuppressionWindow time.Duration `env:"SUPPRESSION_WINDOW" envDefault:"5m"`
	OpensBefore       time.Duration `env:"CHECKIN_OPENS_BEFORE" envDefault:"0s"`
}

// BadgeConfig holds issuance settings.
type BadgeConfig struct {
	QRDir        string `env:"QR_DIR" envDefault:"./var/qrcodes"`
	QRBaseURL    string `env:"QR_BASE_URL" envDefault:"/qrcodes"`
	BackfillCron string `env:"BACKFILL_CRON"`
}

// RankingConfig holds leaderboard cache settings.
type RankingConfig struct {
	CacheTTL time.Duration `env:"RANKING_CACHE_TTL" envDefault:"30s"`
}

// OutboxConfig holds relay settings.
type OutboxConfig struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// TracingConfig configures span export. Tracing stays off until an OTLP/HTTP
// endpoint is set.
type TracingConfig struct {
	Enabled     bool    `env:"TRACING_ENABLED" envDefault:"true"`
	Endpoint    string  `env:"TRACING_ENDPOINT"`
	ServiceName string  `env:"TRACING_SERVICE_NAME" envDefault:"badgehub"`
	SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1"`
}

// FromEnv loads an optional .env file and parses the environment.
func FromEnv() (Server, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	if c.Checkin.SuppressionWindow < 0 {
		return fmt.Errorf("SUPPRESSION_WINDOW must not be negative")
	}
	if c.Checkin.OpensBefore < 0 {
		return fmt.Errorf("CHECKIN_OPENS_BEFORE must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// InMemory reports whether the server runs without PostgreSQL.
func (c Server) InMemory() bool {
	return c.DatabaseURL == ""
}
