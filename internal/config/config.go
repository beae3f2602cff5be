package config

import (
	"log/slog"
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr  string
	MySQLDSN  string
	RedisAddr string
	// AMQPURL empty disables notification event publishing.
	AMQPURL string

	// Currency and ConversionRate drive the payment-widget amount:
	// listing prices divided by the rate, rounded to two decimals.
	// A fixed rate is a known limitation; production wants a live feed.
	Currency       string
	ConversionRate float64

	NotifyWorkers   int
	NotifyQueueSize int
}

func Load() *Config {
	return &Config{
		HTTPAddr:        getEnv("CHECKOUT_HTTP_ADDR", ":8080"),
		MySQLDSN:        getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/builderhub?parseTime=true"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		AMQPURL:         getEnv("AMQP_URL", ""),
		Currency:        getEnv("CHECKOUT_CURRENCY", "USD"),
		ConversionRate:  getEnvFloat("CHECKOUT_CONVERSION_RATE", 300),
		NotifyWorkers:   getEnvInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 1024),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer env value, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		slog.Warn("invalid numeric env value, using default", "key", key, "value", value)
		return defaultValue
	}
	return f
}
