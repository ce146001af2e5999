package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env              string                  `env:"ENV,default=local"`
	Logger           LoggerConfig            `env:",prefix=LOGGER_"`
	Observability    ObservabilityHTTPConfig `env:",prefix=OBSERVABILITY_"`
	ShutdownDuration time.Duration           `env:"SHUTDOWN_DURATION,default=30s"`
	DB               SQLiteConfig            `env:",prefix=DB_"`
	Telegram         TelegramConfig          `env:",prefix=TELEGRAM_"`
	Panel            PanelConfig             `env:",prefix=XUI_"`
	Workers          WorkersConfig           `env:",prefix=WORKER_"`
	Pricing          PricingConfig           `env:",prefix=PRICING_"`
}

type TelegramConfig struct {
	BotToken string        `env:"BOT_TOKEN,required"`
	Timeout  time.Duration `env:"TIMEOUT,default=30s"`
	AdminIDs []int64       `env:"ADMIN_IDS"`
	// RateLimitPerMinute caps updates handled per user.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE,default=20"`
}

// PanelConfig controls how 3x-ui panel clients are built.
type PanelConfig struct {
	Timeout      time.Duration `env:"TIMEOUT,default=30s"`
	MaxRetries   int           `env:"MAX_RETRIES,default=3"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF,default=2s"`
	// InsecureSkipVerify skips TLS verification for panels running on
	// self-signed certificates.
	InsecureSkipVerify bool `env:"INSECURE_SKIP_VERIFY,default=false"`
}

type WorkersConfig struct {
	ExpirationInterval  time.Duration `env:"EXPIRATION_INTERVAL,default=1m"`
	ReviewReminderCron  string        `env:"REVIEW_REMINDER_CRON,default=0 9 * * *"`
	PanelHealthInterval time.Duration `env:"PANEL_HEALTH_INTERVAL,default=5m"`
}

// PricingConfig seeds the optional price calculator used to default
// plan prices. Pricing is disabled when PricePerGB is zero.
type PricingConfig struct {
	PricePerGB        float64 `env:"PRICE_PER_GB,default=0"`
	ExtraMonthPercent float64 `env:"EXTRA_MONTH_PERCENT,default=0"`
	AdditionalUser    float64 `env:"ADDITIONAL_USER,default=0"`
	MaxMonths         int     `env:"MAX_MONTHS,default=6"`
}

type LoggerConfig struct {
	Level string `env:"LEVEL,default=debug"`
}

type ObservabilityHTTPConfig struct {
	Host         string        `env:"HOST,default=127.0.0.1"`
	Port         uint16        `env:"PORT,default=8383"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a ObservabilityHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type SQLiteConfig struct {
	Path         string `env:"PATH,default=./data/tondar.db"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS,default=25"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS,default=5"`
	MaxLifetime  string `env:"MAX_LIFETIME,default=5m"`
}
