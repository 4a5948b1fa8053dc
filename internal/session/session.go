// Package session represents one console connection: the raw
// connection, the filtered streams derived from it and the binding set
// the evaluator runs against.
//
// Evaluators see only the session, never the telnet layer, so they can
// be driven from plain buffers in tests.
package session

import (
	"io"
	"net"
	"time"

	"telconsole/internal/bindings"
	"telconsole/internal/metrics"
	"telconsole/util"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID       string
	Conn     net.Conn  // raw connection; nil in tests
	Stdin    io.Reader // filtered input
	Stdout   io.Writer // filtered output
	Bindings *bindings.Set
	Logger   *util.Logger
	Metrics  *metrics.Collector
	Started  time.Time
}

// New creates a Session over the given filtered stream pair.
func New(id string, conn net.Conn, stdin io.Reader, stdout io.Writer, binds *bindings.Set, logger *util.Logger) *Session {
	return &Session{
		ID:       id,
		Conn:     conn,
		Stdin:    stdin,
		Stdout:   stdout,
		Bindings: binds,
		Logger:   logger,
		Started:  time.Now(),
	}
}

// Remote returns the peer address, or "-" when there is no connection.
func (s *Session) Remote() string {
	if s.Conn == nil || s.Conn.RemoteAddr() == nil {
		return "-"
	}
	return s.Conn.RemoteAddr().String()
}
