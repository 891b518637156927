// Package config handles daemon configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	DataDir        string
	LogLevel       slog.Level
	CaptureTimeout time.Duration
}

func Load() *Config {
	return &Config{
		HTTPAddr:       getEnv("GLANCE_HTTP_ADDR", ":8000"),
		DataDir:        getEnv("GLANCE_DATA_DIR", defaultDataDir()),
		LogLevel:       parseLevel(getEnv("GLANCE_LOG_LEVEL", "info")),
		CaptureTimeout: time.Duration(getEnvInt("GLANCE_CAPTURE_TIMEOUT_SEC", 10)) * time.Second,
	}
}

// defaultDataDir resolves to ~/.glance, or a relative .glance when the
// home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".glance"
	}
	return filepath.Join(home, ".glance")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
