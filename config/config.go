package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all backtest configuration loaded from environment variables.
type Config struct {
	// Data source: csv, sqlite or redis
	Source string

	// CSV source
	CSVPath       string
	CSVTimeField  string
	CSVTimeType   string // second, millisecond, date, datetime
	CSVTimeLayout string
	CSVReverse    bool

	// Infrastructure
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	ListenAddr    string // empty disables the HTTP surface

	// Series
	Exchange string
	Token    string
	TF       int // seconds

	// Account
	InitialCash    float64
	CommissionRate float64
	MinCommission  float64

	// Strategy
	Strategy   string
	Size       int64
	Session    string // nse, fx
	Indicators string // TYPE:PERIOD,... printed alongside the report

	// Alerts
	NotifyWebhookURL string
	TelegramBotToken string
	TelegramChatID   string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Malformed numbers fall back to the default with a warning; Validate catches
// values that are well-formed but unusable.
func Load() *Config {
	return &Config{
		Source: strings.ToLower(getEnv("BACKTEST_SOURCE", "csv")),

		CSVPath:       getEnv("CSV_PATH", "data/candles.csv"),
		CSVTimeField:  getEnv("CSV_TIME_FIELD", "time"),
		CSVTimeType:   getEnv("CSV_TIME_TYPE", "datetime"),
		CSVTimeLayout: getEnv("CSV_TIME_LAYOUT", "2006-01-02 15:04:05"),
		CSVReverse:    getBool("CSV_REVERSE", false),

		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		ListenAddr:    getEnv("LISTEN_ADDR", ""),

		// Default: NIFTY 50 index on NSE, 1m bars
		Exchange: getEnv("EXCHANGE", "NSE"),
		Token:    getEnv("TOKEN", "99926000"),
		TF:       getInt("TF", 60),

		InitialCash:    getFloat("INITIAL_CASH", 100000),
		CommissionRate: getFloat("COMMISSION_RATE", 0.0003),
		MinCommission:  getFloat("MIN_COMMISSION", 0),

		Strategy:   getEnv("STRATEGY", "sma"),
		Size:       int64(getInt("ORDER_SIZE", 1)),
		Session:    getEnv("SESSION", "nse"),
		Indicators: getEnv("INDICATORS", ""),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every unusable setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source {
	case "csv":
		if c.CSVPath == "" {
			errs = append(errs, errors.New("CSV_PATH is required for csv source"))
		}
		if c.CSVTimeField == "" {
			errs = append(errs, errors.New("CSV_TIME_FIELD is required for csv source"))
		}
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for sqlite source"))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis source"))
		}
	default:
		errs = append(errs, fmt.Errorf("BACKTEST_SOURCE %q: want csv, sqlite or redis", c.Source))
	}
	if c.Source != "csv" && (c.Exchange == "" || c.Token == "") {
		errs = append(errs, errors.New("EXCHANGE and TOKEN are required for stored sources"))
	}
	if c.TF <= 0 {
		errs = append(errs, fmt.Errorf("TF must be positive, got %d", c.TF))
	}
	if c.InitialCash <= 0 {
		errs = append(errs, fmt.Errorf("INITIAL_CASH must be positive, got %g", c.InitialCash))
	}
	if c.CommissionRate < 0 || c.MinCommission < 0 {
		errs = append(errs, errors.New("COMMISSION_RATE and MIN_COMMISSION must not be negative"))
	}
	if c.Size <= 0 {
		errs = append(errs, fmt.Errorf("ORDER_SIZE must be positive, got %d", c.Size))
	}
	if c.Strategy == "" {
		errs = append(errs, errors.New("STRATEGY is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}
