package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all service configuration loaded from the environment.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Checkout CheckoutConfig
	Pricing  PricingConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Log      LogConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"20s"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type StorageConfig struct {
	Driver      string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	MaxConns    int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	SeedFile    string `envconfig:"SEED_FILE"`
}

type CheckoutConfig struct {
	HoldDuration    time.Duration `envconfig:"CHECKOUT_HOLD_DURATION" default:"15m"`
	ReaperInterval  time.Duration `envconfig:"REAPER_INTERVAL" default:"30s"`
	ReaperBatchSize int           `envconfig:"REAPER_BATCH_SIZE" default:"100"`
	ReaperLeaseTTL  time.Duration `envconfig:"REAPER_LEASE_TTL" default:"25s"`
	WebhookSecret   string        `envconfig:"WEBHOOK_SECRET"`
}

type PricingConfig struct {
	TaxRate          decimal.Decimal `envconfig:"TAX_RATE" default:"0.03"`
	ShippingFlat     decimal.Decimal `envconfig:"SHIPPING_FLAT" default:"0"`
	FreeShippingOver decimal.Decimal `envconfig:"FREE_SHIPPING_OVER" default:"0"`
	// DiscountCodes maps an upper-case code to a percentage off, e.g. "WELCOME10:10".
	DiscountCodes map[string]int `envconfig:"DISCOUNT_CODES"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"order-intents"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type TracingConfig struct {
	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT"`
	ServiceName    string `envconfig:"SERVICE_NAME" default:"order-intent-api"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS"`
}

// Address returns the listen address for the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Checkout.HoldDuration <= 0 {
		return errors.New("CHECKOUT_HOLD_DURATION must be positive")
	}
	if c.Checkout.ReaperInterval <= 0 {
		return errors.New("REAPER_INTERVAL must be positive")
	}
	if c.Checkout.ReaperBatchSize <= 0 {
		return errors.New("REAPER_BATCH_SIZE must be positive")
	}
	if c.Pricing.TaxRate.IsNegative() {
		return errors.New("TAX_RATE must not be negative")
	}
	for code, pct := range c.Pricing.DiscountCodes {
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("discount code %s: percent must be in 1..100", code)
		}
	}
	return nil
}

func (c *Config) normalize() {
	codes := make(map[string]int, len(c.Pricing.DiscountCodes))
	for code, pct := range c.Pricing.DiscountCodes {
		codes[strings.ToUpper(strings.TrimSpace(code))] = pct
	}
	c.Pricing.DiscountCodes = codes

	origins := c.CORS.Origins[:0]
	for _, o := range c.CORS.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.Origins = origins
}
