package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Properties file  (properties.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SkipFunc reports whether the field behind a flag name was already set
// by a higher-precedence source.
type SkipFunc func(flag string) bool

func noSkip(string) bool { return false }

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TELCONSOLE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value, and fields whose flag skip
// reports as set are left alone.
func LoadFromEnv(cfg *Config, skip SkipFunc) {
	if skip == nil {
		skip = noSkip
	}

	if v, ok := envInt(EnvPrefix + "PORT"); ok && !skip("port") {
		cfg.Port = v
	}
	if envBool(EnvPrefix+"DEBUG") && !skip("debug") {
		cfg.Debug = true
	}
	if v, ok := envInt(EnvPrefix + "MAX_CONNS"); ok && !skip("max-conns") {
		cfg.MaxConns = v
	}
	if v, ok := envInt(EnvPrefix + "HEARTBEAT"); ok && v > 0 && !skip("heartbeat") {
		cfg.Heartbeat = secondsDuration(v)
	}

	if v := os.Getenv(EnvPrefix + "EXEC"); v != "" && !skip("exec") {
		cfg.Execute = v
	}
	if v := os.Getenv(EnvPrefix + "COMMAND"); v != "" && !skip("command") {
		cfg.Command = v
	}
	if envBool(EnvPrefix+"NO_COLOR") && !skip("no-color") {
		cfg.NoColor = true
	}
	if v := os.Getenv(EnvPrefix + "BINDINGS_FILE"); v != "" && !skip("bindings-file") {
		cfg.BindingsFile = v
	}

	// Output
	if v, ok := envInt(EnvPrefix + "VERBOSE"); ok && v >= 0 && !skip("verbose") {
		cfg.Verbose = v
	}
}

// PropertiesPath returns the properties file named by the environment,
// or "" when none is set.
func PropertiesPath() string {
	return os.Getenv(EnvPrefix + "CONFIG")
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
