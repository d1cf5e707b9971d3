package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	DB       DBConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Gateway  GatewayConfig
	Reminder ReminderConfig
	Notify   NotifyConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Env           string        `envconfig:"APP_ENV" default:"dev"`
	TimeZone      string        `envconfig:"APP_TIMEZONE" default:"Asia/Kathmandu"`
	BookingCutoff time.Duration `envconfig:"BOOKING_CUTOFF" default:"2h"`
}

type HTTPConfig struct {
	Addr          string `envconfig:"HTTP_ADDR" default:":8080"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
}

type DBConfig struct {
	DSN         string `envconfig:"DB_DSN" required:"true"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	ApplySchema bool   `envconfig:"DB_APPLY_SCHEMA" default:"false"`
}

type JWTConfig struct {
	Secret         string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"12"`
}

type CORSConfig struct {
	ProdOrigins []string `envconfig:"PROD_ORIGINS"`
	DevOrigins  []string `envconfig:"DEV_ORIGINS" default:"http://localhost:3000,http://localhost:8081"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// GatewayConfig is the payment gateway merchant setup.
// SuccessURL and FailureURL default to this server's callback routes.
type GatewayConfig struct {
	SecretKey        string `envconfig:"GATEWAY_SECRET_KEY" required:"true"`
	MerchantCode     string `envconfig:"GATEWAY_MERCHANT_CODE" default:"EPAYTEST"`
	FormURL          string `envconfig:"GATEWAY_FORM_URL" default:"https://rc-epay.esewa.com.np/api/epay/main/v2/form"`
	SuccessURL       string `envconfig:"GATEWAY_SUCCESS_URL"`
	FailureURL       string `envconfig:"GATEWAY_FAILURE_URL"`
	RequireSignature bool   `envconfig:"GATEWAY_REQUIRE_SIGNATURE" default:"true"`
}

type ReminderConfig struct {
	// Interval of the in-process sweep; zero leaves scheduling to cmd/reminder.
	Interval    time.Duration `envconfig:"REMINDER_INTERVAL" default:"0"`
	SendTimeout time.Duration `envconfig:"REMINDER_SEND_TIMEOUT" default:"10s"`
	LockKey     int64         `envconfig:"REMINDER_LOCK_KEY" default:"7270301"`
}

type NotifyConfig struct {
	ExpoEnabled  bool   `envconfig:"NOTIFY_EXPO_ENABLED" default:"false"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPass     string `envconfig:"SMTP_PASS"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`
	Workers      int    `envconfig:"NOTIFY_WORKERS" default:"4"`
	QueueSize    int    `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
}

type StorageConfig struct {
	Path string `envconfig:"STORAGE_PATH" default:"./data"`
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if c.App.BookingCutoff < 0 {
		return fmt.Errorf("BOOKING_CUTOFF must not be negative")
	}
	if c.JWT.BcryptCost < 4 || c.JWT.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST %d out of range", c.JWT.BcryptCost)
	}

	base := strings.TrimRight(c.HTTP.PublicBaseURL, "/")
	if c.Gateway.SuccessURL == "" {
		c.Gateway.SuccessURL = base + "/v1/payments/gateway/success"
	}
	if c.Gateway.FailureURL == "" {
		c.Gateway.FailureURL = base + "/v1/payments/gateway/failure"
	}

	if c.IsProduction() && !c.Gateway.RequireSignature {
		return fmt.Errorf("GATEWAY_REQUIRE_SIGNATURE cannot be disabled in production")
	}
	if c.Notify.Workers < 1 {
		c.Notify.Workers = 1
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production.
func (c *Config) IsProduction() bool {
	return c.App.Env == PROD_STRING
}

// Location returns the wall-clock zone that booking dates and times are expressed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
