package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "MINIBAR"

type Config struct {
	Port                  string `envconfig:"PORT" default:"8080"`
	AllowedOrigin         string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	DatabaseURL           string `envconfig:"DATABASE_URL"`
	RedisAddr             string `envconfig:"REDIS_ADDR"`
	RedisPassword         string `envconfig:"REDIS_PASSWORD"`
	RedisDB               int    `envconfig:"REDIS_DB" default:"0"`
	AuthSecret            string `envconfig:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `envconfig:"ACCESS_TOKEN_TTL_MINUTES" default:"480"`
	StartingCash          string `envconfig:"STARTING_CASH" default:"312.00"`
	StateDocumentID       string `envconfig:"STATE_DOCUMENT_ID" default:"main_state"`
	BackupPath            string `envconfig:"BACKUP_PATH"`
	BackupRetention       int    `envconfig:"BACKUP_RETENTION" default:"50"`
	S3Bucket              string `envconfig:"S3_BUCKET"`
	S3Region              string `envconfig:"S3_REGION"`
	S3Endpoint            string `envconfig:"S3_ENDPOINT"`
	S3Prefix              string `envconfig:"S3_PREFIX" default:"minibar"`
	S3AccessKey           string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey           string `envconfig:"S3_SECRET_KEY"`
	InsightTTLSeconds     int    `envconfig:"INSIGHT_TTL_SECONDS" default:"300"`
	LowStockThreshold     int    `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
	RecentLogLimit        int    `envconfig:"RECENT_LOG_LIMIT" default:"10"`
	LogLevel              string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat             string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads MINIBAR_* variables, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)

	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.InsightTTLSeconds < 1 {
		cfg.InsightTTLSeconds = 300
	}
	if cfg.BackupRetention < 1 {
		cfg.BackupRetention = 50
	}
	if cfg.RecentLogLimit < 1 {
		cfg.RecentLogLimit = 10
	}
	if _, err := cfg.StartingCashAmount(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) StartingCashAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.StartingCash))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s_STARTING_CASH: %w", EnvPrefix, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s_STARTING_CASH must not be negative", EnvPrefix)
	}
	return amount, nil
}
