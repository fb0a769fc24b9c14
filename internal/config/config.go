// Package config reads the milter's settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by Load.
const (
	EnvSocket      = "FROMCHECK_SOCKET"
	EnvTimeout     = "FROMCHECK_TIMEOUT"
	EnvLogLevel    = "FROMCHECK_LOG_LEVEL"
	EnvMetricsAddr = "FROMCHECK_METRICS_ADDR"
)

// DefaultTimeout matches libmilter's default. The MTA sends nothing while the
// SMTP client works through the envelope, so the limit must allow for slow
// clients.
const DefaultTimeout = 7210 * time.Second

// Config holds the process settings. None of them affect how From headers
// are judged.
type Config struct {
	// Socket is the milter socket in Sendmail notation, e.g.
	// inet:8890@127.0.0.1 or unix:/run/fromcheck/milter.sock.
	Socket string

	// Timeout bounds each exchange with the MTA.
	Timeout time.Duration

	LogLevel slog.Level

	// MetricsAddr is where /metrics is served. Empty disables it.
	MetricsAddr string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Socket:   "inet:8890@127.0.0.1",
		Timeout:  DefaultTimeout,
		LogLevel: slog.LevelInfo,
	}
}

// Load starts from Default and applies the environment.
func Load() (Config, error) {
	c := Default()
	if v, ok := lookup(EnvSocket); ok {
		c.Socket = v
	}
	if v, ok := lookup(EnvTimeout); ok {
		d, err := ParseTimeout(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok {
		l, err := ParseLogLevel(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.LogLevel = l
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}
	return c, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// ParseTimeout accepts a Go duration ("30s", "2m") or a plain number of
// seconds.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative timeout %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", d)
	}
	return d, nil
}

// ParseLogLevel accepts debug, info, warn (or warning) and error, in any case.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
