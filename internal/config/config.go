package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Mastering MasteringConfig
	Mixmea    MixmeaConfig
	Storage   StorageConfig
	Email     EmailConfig
	Delivery  DeliveryConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	MasteringPerHour int
	PitchPerHour     int
	ReconcilePerHour int
}

// MasteringConfig drives the external mastering job poller. PollInterval
// and MaxAttempts are the only tuning knobs; there is no backoff.
type MasteringConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxAttempts  int
}

type MixmeaConfig struct {
	BaseURL     string
	APIKey      string
	CallbackURL string
}

type StorageConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type EmailConfig struct {
	RelayURL string
	APIKey   string
	FromName string
}

type DeliveryConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

type PipelineConfig struct {
	ExpressAdvanceDelay time.Duration
	PitchTargetLimit    int
	EstimatedLiveDays   int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	for _, key := range []string{
		"POSTGRES_PASSWORD", "REDIS_PASSWORD", "JWT_SECRET",
		"MASTERING_API_KEY", "MIXMEA_API_KEY",
		"STORAGE_SECRET_ACCESS_KEY", "EMAIL_API_KEY",
		"DELIVERY_API_KEY", "DELIVERY_API_SECRET",
	} {
		readSecret(key)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "distribution")
	v.SetDefault("POSTGRES_DB", "distribution")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_EXPIRATION_HOURS", 24)

	v.SetDefault("RATE_LIMIT_MASTERING_PER_HOUR", 10)
	v.SetDefault("RATE_LIMIT_PITCH_PER_HOUR", 20)
	v.SetDefault("RATE_LIMIT_RECONCILE_PER_HOUR", 12)

	v.SetDefault("MASTERING_BASE_URL", "https://api.dolby.com")
	v.SetDefault("MASTERING_POLL_INTERVAL", "2s")
	v.SetDefault("MASTERING_MAX_ATTEMPTS", 30)

	v.SetDefault("MIXMEA_BASE_URL", "https://api.mixmea.com")

	v.SetDefault("EMAIL_FROM_NAME", "Slap Trapper Entertainment")

	v.SetDefault("DELIVERY_BASE_URL", "https://api.fuga.com/v3")

	v.SetDefault("PIPELINE_EXPRESS_ADVANCE_DELAY", "24h")
	v.SetDefault("PIPELINE_PITCH_TARGET_LIMIT", 50)
	v.SetDefault("PIPELINE_ESTIMATED_LIVE_DAYS", 2)

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetInt("JWT_EXPIRATION_HOURS"),
		},
		RateLimit: RateLimitConfig{
			MasteringPerHour: v.GetInt("RATE_LIMIT_MASTERING_PER_HOUR"),
			PitchPerHour:     v.GetInt("RATE_LIMIT_PITCH_PER_HOUR"),
			ReconcilePerHour: v.GetInt("RATE_LIMIT_RECONCILE_PER_HOUR"),
		},
		Mastering: MasteringConfig{
			BaseURL:      v.GetString("MASTERING_BASE_URL"),
			APIKey:       v.GetString("MASTERING_API_KEY"),
			PollInterval: v.GetDuration("MASTERING_POLL_INTERVAL"),
			MaxAttempts:  v.GetInt("MASTERING_MAX_ATTEMPTS"),
		},
		Mixmea: MixmeaConfig{
			BaseURL:     v.GetString("MIXMEA_BASE_URL"),
			APIKey:      v.GetString("MIXMEA_API_KEY"),
			CallbackURL: v.GetString("MIXMEA_CALLBACK_URL"),
		},
		Storage: StorageConfig{
			AccountID:       v.GetString("STORAGE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("STORAGE_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("STORAGE_BUCKET_NAME"),
			PublicURL:       v.GetString("STORAGE_PUBLIC_URL"),
		},
		Email: EmailConfig{
			RelayURL: v.GetString("EMAIL_RELAY_URL"),
			APIKey:   v.GetString("EMAIL_API_KEY"),
			FromName: v.GetString("EMAIL_FROM_NAME"),
		},
		Delivery: DeliveryConfig{
			BaseURL:   v.GetString("DELIVERY_BASE_URL"),
			APIKey:    v.GetString("DELIVERY_API_KEY"),
			APISecret: v.GetString("DELIVERY_API_SECRET"),
		},
		Pipeline: PipelineConfig{
			ExpressAdvanceDelay: v.GetDuration("PIPELINE_EXPRESS_ADVANCE_DELAY"),
			PitchTargetLimit:    v.GetInt("PIPELINE_PITCH_TARGET_LIMIT"),
			EstimatedLiveDays:   v.GetInt("PIPELINE_ESTIMATED_LIVE_DAYS"),
		},
	}

	return cfg, nil
}
