package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/intodakt/computer-networks-project/activity"
	"github.com/intodakt/computer-networks-project/protocol"
	"github.com/intodakt/computer-networks-project/transport"
)

type Config struct {
	TCPAddr       string
	HTTPAddr      string
	LogLevel      slog.Level
	LogFormat     string
	MaxRecordSize int
	SendQueueSize int
	RabbitMQURL   string
	AMQPExchange  string
}

// Load reads .env if present, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		TCPAddr:       getString("TCP_ADDR", ":9090"),
		HTTPAddr:      getString("HTTP_ADDR", ":8080"),
		LogLevel:      parseLevel(os.Getenv("LOG_LEVEL")),
		LogFormat:     strings.ToLower(getString("LOG_FORMAT", "text")),
		MaxRecordSize: getInt("MAX_RECORD_SIZE", protocol.DefaultMaxRecord),
		SendQueueSize: getInt("SEND_QUEUE_SIZE", transport.DefaultQueueSize),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		AMQPExchange:  getString("AMQP_EXCHANGE", activity.DefaultExchange),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer setting, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}
