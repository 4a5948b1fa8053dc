package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the properties file and environment variable
// loading.

const (
	// DefaultPort is the console's listening port.
	DefaultPort = 3113

	// DefaultListenHost is the only interface the console binds to.
	DefaultListenHost = "127.0.0.1"

	// DefaultHeartbeat is the interval between liveness log lines.
	DefaultHeartbeat = 10 * time.Minute

	// DefaultGracePeriod is how long shutdown waits for sessions to end.
	DefaultGracePeriod = 5 * time.Second

	// DefaultBindingsTTL is how long shared bindings are cached.
	DefaultBindingsTTL = time.Minute

	// DefaultPrompt names the console prompt.
	DefaultPrompt = "console"

	// DefaultVerbosity prints info, warnings and errors.
	DefaultVerbosity = 1

	// DefaultHealthTimeout bounds one healthcheck probe.
	DefaultHealthTimeout = 5 * time.Second

	// DefaultHealthWait bounds healthcheck --wait retries.
	DefaultHealthWait = 30 * time.Second

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "TELCONSOLE_"
)
