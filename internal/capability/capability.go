// Package capability defines what runs over an established console
// connection.  Each Capability is one evaluator (the built-in console
// REPL, or an external program) and operates on a Session rather than
// a raw net.Conn, which keeps evaluators testable and decoupled from
// the telnet layer.
package capability

import (
	"context"

	"telconsole/internal/session"
)

// Capability evaluates one session.  Implementations include the
// expression console (Console) and child process execution (Exec).
type Capability interface {
	// Handle runs the evaluator against the given session.
	// It blocks until the peer disconnects, the evaluator finishes
	// or the context is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}

// Func adapts a function to Capability.
type Func func(ctx context.Context, sess *session.Session) error

// Handle calls f.
func (f Func) Handle(ctx context.Context, sess *session.Session) error { return f(ctx, sess) }
