package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		want  zerolog.Level
	}{
		{"debug", LevelDebug, zerolog.DebugLevel},
		{"info", LevelInfo, zerolog.InfoLevel},
		{"warn", LevelWarn, zerolog.WarnLevel},
		{"warning alias", LogLevel("warning"), zerolog.WarnLevel},
		{"error", LevelError, zerolog.ErrorLevel},
		{"unknown defaults to info", LogLevel("bogus"), zerolog.InfoLevel},
		{"case insensitive", LogLevel("DEBUG"), zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.level); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelInfo, Output: &buf})

	logger.Info().Str("endpoint", "/search").Msg("test message")

	out := buf.String()
	if !strings.Contains(out, `"endpoint":"/search"`) {
		t.Errorf("output missing structured field: %s", out)
	}
	if !strings.Contains(out, `"message":"test message"`) {
		t.Errorf("output missing message: %s", out)
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelWarn, Output: &buf})

	logger.Info().Msg("should be filtered")
	logger.Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should be filtered") {
		t.Errorf("info message not filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelDebug, Output: &buf})

	logger := NewLogger("rate-limiter")
	logger.Info().Msg("component test")

	if !strings.Contains(buf.String(), `"component":"rate-limiter"`) {
		t.Errorf("output missing component field: %s", buf.String())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("default Level = %v, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("default Pretty = true, want false")
	}
}
