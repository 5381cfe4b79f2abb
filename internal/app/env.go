// ABOUTME: Environment configuration for the player
// ABOUTME: Loads an optional .env file and maps SLOTSTREAM_* variables onto Config
package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/Resonate-Protocol/slotstream/pkg/audio/output"
	"github.com/Resonate-Protocol/slotstream/pkg/stream"
)

// Environment variables read by ConfigFromEnv
const (
	EnvLatencyMs   = "SLOTSTREAM_LATENCY_MS"
	EnvBackend     = "SLOTSTREAM_BACKEND"
	EnvSampleRate  = "SLOTSTREAM_SAMPLE_RATE"
	EnvNonblocking = "SLOTSTREAM_NONBLOCKING"
	EnvRecalibrate = "SLOTSTREAM_RECALIBRATE"
)

// LoadEnv loads envFile into the process environment if it exists.
// Variables already set are not overridden.
func LoadEnv(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return errors.Wrapf(err, "load %v", envFile)
	}

	setEnvDefault(EnvLatencyMs, strconv.Itoa(stream.DefaultLatencyMs))
	setEnvDefault(EnvBackend, output.DefaultBackend)
	setEnvDefault(EnvSampleRate, strconv.Itoa(stream.DefaultSampleRate))
	setEnvDefault(EnvNonblocking, "false")
	setEnvDefault(EnvRecalibrate, DefaultRecalibrateEvery.String())
	return nil
}

// ConfigFromEnv builds a Config from the SLOTSTREAM_* variables
func ConfigFromEnv() (Config, error) {
	var c Config
	var err error

	if c.LatencyMs, err = envInt(EnvLatencyMs, stream.DefaultLatencyMs); err != nil {
		return c, err
	}
	if c.SampleRate, err = envInt(EnvSampleRate, stream.DefaultSampleRate); err != nil {
		return c, err
	}
	if c.Nonblocking, err = envBool(EnvNonblocking); err != nil {
		return c, err
	}
	if v := os.Getenv(EnvRecalibrate); v != "" {
		if c.RecalibrateEvery, err = time.ParseDuration(v); err != nil {
			return c, errors.Wrapf(err, "parse %v=%v", EnvRecalibrate, v)
		}
	}

	c.Backend = os.Getenv(EnvBackend)
	if c.Backend == "" {
		c.Backend = output.DefaultBackend
	}
	return c, nil
}

// setEnvDefault set env key=value if not set.
func setEnvDefault(key, value string) {
	if os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %v=%v", key, v)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "parse %v=%v", key, v)
	}
	return b, nil
}
