// Package config defines the runtime configuration for telconsole and
// the helpers that fill it from flags, environment variables and a
// properties file.
package config

import (
	"strconv"
	"strings"
	"time"

	"telconsole/internal/errors"
	"telconsole/util"
)

// Config holds every tuneable for one telconsole process.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Port        int           // loopback TCP port; 0 picks a free one
	MaxConns    int           // concurrent session bound; 0 = unbounded
	Heartbeat   time.Duration // liveness log interval
	GracePeriod time.Duration // shutdown wait for live sessions

	// ── Sessions ─────────────────────────────────────────────────────
	Debug   bool   // skip the shared bindings provider
	Execute string // -e: program path
	Command string // -c: shell command
	Prompt  string
	NoColor bool

	// ── Bindings ─────────────────────────────────────────────────────
	Binds        map[string]any // --bind k=v and console.bind.<k>
	BindingsFile string         // JSON object merged into every session
	BindingsTTL  time.Duration  // cache lifetime for shared bindings

	// ── Output ───────────────────────────────────────────────────────
	Verbose        int
	PropertiesFile string
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:        DefaultPort,
		Heartbeat:   DefaultHeartbeat,
		GracePeriod: DefaultGracePeriod,
		Prompt:      DefaultPrompt,
		BindingsTTL: DefaultBindingsTTL,
		Verbose:     DefaultVerbosity,
		Binds:       map[string]any{},
	}
}

// Address returns the loopback listen address.
func (c *Config) Address() string {
	return util.FormatAddr(DefaultListenHost, c.Port)
}

// ── Bind parsing ─────────────────────────────────────────────────────

// ParseBind splits a "name=value" binding.  Values that look like
// integers, floats or booleans are typed accordingly so the console can
// do arithmetic on them; everything else stays a string.
func ParseBind(spec string) (string, any, error) {
	name, raw, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)
	if !ok || !validName(name) {
		return "", nil, &errors.ConfigError{
			Field:   "bind",
			Value:   spec,
			Message: "expected name=value with an identifier name",
			Hint:    "e.g. --bind region=eu-west",
		}
	}
	return name, ParseValue(raw), nil
}

// ParseValue types a raw binding value.
func ParseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !strings.ContainsAny(raw, "xXnN") {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil && len(raw) > 1 {
		return b
	}
	return raw
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "port out of range 0-65535",
			Hint:    "use 0 to pick a free port",
		}
	}
	if c.MaxConns < 0 {
		return &errors.ConfigError{
			Field:   "max-conns",
			Value:   c.MaxConns,
			Message: "must not be negative",
			Hint:    "use 0 for no limit",
		}
	}
	if c.Heartbeat <= 0 {
		return &errors.ConfigError{
			Field:   "heartbeat",
			Value:   c.Heartbeat,
			Message: "must be positive",
			Hint:    "e.g. --heartbeat 10m",
		}
	}
	if c.GracePeriod < 0 {
		return &errors.ConfigError{
			Field:   "grace",
			Value:   c.GracePeriod,
			Message: "must not be negative",
		}
	}
	if c.Execute != "" && c.Command != "" {
		return &errors.ConfigError{
			Field:   "exec",
			Message: "-e and -c are mutually exclusive",
			Hint:    "use -c for shell pipelines, -e for a single program",
		}
	}
	for name := range c.Binds {
		if !validName(name) {
			return &errors.ConfigError{
				Field:   "bind",
				Value:   name,
				Message: "binding names must be identifiers",
			}
		}
	}
	return nil
}

// UsesConsole reports whether sessions run the built-in console rather
// than an external program.
func (c *Config) UsesConsole() bool {
	return c.Execute == "" && c.Command == ""
}
