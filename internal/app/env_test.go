// ABOUTME: Tests for environment configuration
// ABOUTME: Tests .env loading, defaults and parse errors
package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every SLOTSTREAM_* variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvLatencyMs, EnvBackend, EnvSampleRate, EnvNonblocking, EnvRecalibrate} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	clearEnv(t)

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected a missing .env to be ignored, got %v", err)
	}

	c, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if c.LatencyMs != 128 || c.SampleRate != 48000 || c.Backend != "oto" || c.Nonblocking {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.RecalibrateEvery != time.Second {
		t.Errorf("expected 1s recalibration, got %v", c.RecalibrateEvery)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "SLOTSTREAM_LATENCY_MS=64\nSLOTSTREAM_BACKEND=null\nSLOTSTREAM_NONBLOCKING=true\nSLOTSTREAM_RECALIBRATE=250ms\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	// Already-set variables win over the file
	os.Setenv(EnvBackend, "malgo")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	c, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if c.LatencyMs != 64 || !c.Nonblocking || c.RecalibrateEvery != 250*time.Millisecond {
		t.Errorf("unexpected config from file: %+v", c)
	}
	if c.Backend != "malgo" {
		t.Errorf("expected environment to override the file, got backend %q", c.Backend)
	}
}

func TestConfigFromEnvErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvLatencyMs, "soon"},
		{EnvSampleRate, "fast"},
		{EnvNonblocking, "maybe"},
		{EnvRecalibrate, "often"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			os.Setenv(tt.key, tt.value)

			if _, err := ConfigFromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
