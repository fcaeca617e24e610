package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tunedeck/tunedeck/internal/playback"
)

func TestGetEnvReturnsValueWhenSet(t *testing.T) {
	t.Setenv("TEST_GETENV_SET", "custom-value")

	if got := getEnv("TEST_GETENV_SET", "fallback"); got != "custom-value" {
		t.Errorf("expected %q, got %q", "custom-value", got)
	}
}

func TestGetEnvReturnsFallbackWhenEmpty(t *testing.T) {
	t.Setenv("TEST_GETENV_EMPTY", "")

	if got := getEnv("TEST_GETENV_EMPTY", "default-value"); got != "default-value" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestGetEnvInt64(t *testing.T) {
	t.Setenv("TEST_INT_VALID", "42")
	t.Setenv("TEST_INT_INVALID", "lots")

	if got := getEnvInt64("TEST_INT_VALID", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := getEnvInt64("TEST_INT_INVALID", 7); got != 7 {
		t.Errorf("expected fallback 7 for invalid value, got %d", got)
	}
	if got := getEnvInt64("TEST_INT_UNSET", 7); got != 7 {
		t.Errorf("expected fallback 7 for unset value, got %d", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "750ms", 750 * time.Millisecond},
		{"invalid", "soon", time.Second},
		{"negative", "-1s", time.Second},
		{"empty", "", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvDuration("TEST_DURATION", time.Second); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRecoveryConfigDefaults(t *testing.T) {
	if diff := cmp.Diff(playback.DefaultConfig(), recoveryConfig()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestRecoveryConfigOverrides(t *testing.T) {
	t.Setenv("RECOVERY_MAX_ATTEMPTS", "6")
	t.Setenv("RECOVERY_BACKOFF_STEP", "1s")

	cfg := recoveryConfig()
	if cfg.MaxRecoveryAttempts != 6 {
		t.Errorf("expected 6 attempts, got %d", cfg.MaxRecoveryAttempts)
	}
	if cfg.BackoffStep != time.Second {
		t.Errorf("expected 1s backoff step, got %v", cfg.BackoffStep)
	}
	if cfg.RecreateThreshold != playback.DefaultConfig().RecreateThreshold {
		t.Errorf("expected default recreate threshold, got %d", cfg.RecreateThreshold)
	}
}
