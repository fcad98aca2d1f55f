package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var dotEnvOnce sync.Once

// loadDotEnv reads an optional .env file (or the file named by ENV_FILE) once, before
// the first lookup. Variables already set in the environment win.
func loadDotEnv() {
	dotEnvOnce.Do(func() {
		file, ok := os.LookupEnv("ENV_FILE")
		if !ok {
			file = ".env"
		}
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("Unable to load env file", slog.String("file", file), ErrAttr(err))
		}
	})
}

func GetEnv(key string, fallback string) string {
	loadDotEnv()
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int) int {
	if value, ok := lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		slog.Warn("Invalid int in environment, using default", slog.String("key", key), slog.Int("default", fallback))
	}
	return fallback
}

func GetEnvAsBool(key string, fallback bool) bool {
	if value, ok := lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		slog.Warn("Invalid bool in environment, using default", slog.String("key", key), slog.Bool("default", fallback))
	}
	return fallback
}

func GetEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := lookup(key); ok {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		slog.Warn("Invalid float in environment, using default", slog.String("key", key), slog.Float64("default", fallback))
	}
	return fallback
}

// GetEnvAsDuration accepts Go duration syntax ("15s", "4h") or a bare number of seconds.
func GetEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		slog.Warn("Invalid duration in environment, using default", slog.String("key", key), slog.Duration("default", fallback))
	}
	return fallback
}

// GetEnvAsList splits a comma separated value, dropping empty entries.
func GetEnvAsList(key string, fallback []string) []string {
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func lookup(key string) (string, bool) {
	loadDotEnv()
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}
