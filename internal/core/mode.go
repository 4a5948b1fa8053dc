// Package core is the orchestration layer.  It composes the telnet
// stream filter, the binding providers and an evaluator into a running
// console server, and provides a builder that assembles one from a
// Config.
//
// Architecture layers (bottom → top):
//
//	telnet  →  bindings  →  capability  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete operational mode of telconsole.  The console
// server is the only one; it owns its lifecycle from listen to
// shutdown.
type Mode interface {
	Run(ctx context.Context) error
}
