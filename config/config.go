package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	HTTP       ServerConfig
	MySQL      MySQLConfig
	Log        LogConfig
	Cryptomus  CryptomusConfig
	Evomi      EvomiConfig
	Settlement SettlementConfig
	Jobs       JobsConfig
}

type AppConfig struct {
	ServiceName string
	PublicURL   string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type CryptomusConfig struct {
	MerchantID    string
	PaymentAPIKey string
	BaseURL       string
	AllowedIPs    []string
	HTTPTimeout   time.Duration
	SuccessURL    string
	ReturnURL     string
}

type EvomiConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type SettlementConfig struct {
	PlanDurationDays int
	TxMaxAttempts    int
}

type JobsConfig struct {
	RollupInterval time.Duration
	RollupWindow   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "proxypay-service"),
			PublicURL:   strings.TrimRight(getEnv("APP_PUBLIC_URL", "http://localhost:8080"), "/"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Cryptomus: CryptomusConfig{
			MerchantID:    getEnv("CRYPTOMUS_MERCHANT_ID", ""),
			PaymentAPIKey: getEnv("CRYPTOMUS_PAYMENT_API_KEY", ""),
			BaseURL:       getEnv("CRYPTOMUS_BASE_URL", "https://api.cryptomus.com"),
			AllowedIPs:    getListEnv("CRYPTOMUS_ALLOWED_IPS"),
			HTTPTimeout:   getSecondsEnv("CRYPTOMUS_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			SuccessURL:    getEnv("CRYPTOMUS_SUCCESS_URL", ""),
			ReturnURL:     getEnv("CRYPTOMUS_RETURN_URL", ""),
		},
		Evomi: EvomiConfig{
			BaseURL:     getEnv("EVOMI_BASE_URL", "https://reseller.evomi.com"),
			APIKey:      getEnv("EVOMI_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("EVOMI_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Settlement: SettlementConfig{
			PlanDurationDays: getIntEnv("SETTLEMENT_PLAN_DURATION_DAYS", 30),
			TxMaxAttempts:    getIntEnv("SETTLEMENT_TX_MAX_ATTEMPTS", 3),
		},
		Jobs: JobsConfig{
			RollupInterval: getMinutesEnv("ROLLUP_INTERVAL_MINUTES", 60*time.Minute),
			RollupWindow:   getMinutesEnv("ROLLUP_WINDOW_MINUTES", 24*60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
