package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clear environment
	envVars := []string{
		"GLANCE_HTTP_ADDR", "GLANCE_DATA_DIR", "GLANCE_LOG_LEVEL",
		"GLANCE_CAPTURE_TIMEOUT_SEC",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Check defaults
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if !strings.HasSuffix(cfg.DataDir, ".glance") {
		t.Errorf("DataDir = %q, want a .glance directory", cfg.DataDir)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.CaptureTimeout != 10*time.Second {
		t.Errorf("CaptureTimeout = %v, want %v", cfg.CaptureTimeout, 10*time.Second)
	}
}

func TestLoadWithEnv(t *testing.T) {
	os.Setenv("GLANCE_HTTP_ADDR", ":9000")
	os.Setenv("GLANCE_DATA_DIR", "/var/lib/glance")
	os.Setenv("GLANCE_LOG_LEVEL", "debug")
	os.Setenv("GLANCE_CAPTURE_TIMEOUT_SEC", "5")
	defer func() {
		os.Unsetenv("GLANCE_HTTP_ADDR")
		os.Unsetenv("GLANCE_DATA_DIR")
		os.Unsetenv("GLANCE_LOG_LEVEL")
		os.Unsetenv("GLANCE_CAPTURE_TIMEOUT_SEC")
	}()

	cfg := Load()

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.DataDir != "/var/lib/glance" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/var/lib/glance")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.CaptureTimeout != 5*time.Second {
		t.Errorf("CaptureTimeout = %v, want %v", cfg.CaptureTimeout, 5*time.Second)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	os.Setenv("GLANCE_CAPTURE_TIMEOUT_SEC", "not-a-number")
	defer os.Unsetenv("GLANCE_CAPTURE_TIMEOUT_SEC")

	cfg := Load()
	if cfg.CaptureTimeout != 10*time.Second {
		t.Errorf("CaptureTimeout = %v, want the 10s default", cfg.CaptureTimeout)
	}
}
