package core

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"telconsole/internal/bindings"
	"telconsole/internal/capability"
	"telconsole/internal/errors"
	"telconsole/internal/metrics"
	"telconsole/internal/session"
	"telconsole/internal/telnet"
	"telconsole/util"
)

// Handler runs one console session over an accepted connection.
type Handler struct {
	Capability capability.Capability
	Provider   bindings.Provider // shared bindings; nil for none
	Debug      bool              // skip Provider
	Logger     *util.Logger
	Metrics    *metrics.Collector
}

// Serve negotiates, builds the session's bindings and runs the
// evaluator until it returns.  Failures are logged and counted, never
// returned; the connection is closed exactly once before Serve returns.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	remote := conn.RemoteAddr().String()
	log := h.Logger.With("session", id[:8]).With("remote", remote)

	h.Metrics.SessionOpened()
	start := time.Now()
	log.Verbose("session opened")

	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug("close: %v", err)
		}
		h.Metrics.SessionClosed()
		log.Verbose("session closed after %s", time.Since(start).Round(time.Millisecond))
	}()

	if err := h.serve(ctx, conn, id, remote, log); err != nil {
		h.Metrics.RecordError(err.Error())
		log.Error("%v", err)
	}
}

func (h *Handler) serve(ctx context.Context, conn net.Conn, id, remote string, log *util.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("panic stack:\n%s", debug.Stack())
			err = errors.WrapSession(id, remote, "evaluate",
				fmt.Errorf("%w: %v", errors.ErrSessionPanic, r))
		}
	}()

	stream := telnet.NewStream(conn,
		telnet.WithMetrics(h.Metrics),
		telnet.WithCommandHook(func(c telnet.Command) {
			log.Debug("peer sent %s", c)
		}),
	)

	if err := stream.Negotiate(); err != nil {
		if errors.IsClosed(err) {
			log.Verbose("peer left during negotiation: %v", err)
			return nil
		}
		return errors.WrapSession(id, remote, "negotiate", errors.Wrap("negotiate", remote, err))
	}

	out := stream.Output()
	binds := bindings.NewSet(bindings.NewConsole(telnet.NewCRLFWriter(out)))
	if !h.Debug && h.Provider != nil {
		shared, err := h.Provider.Bindings(ctx)
		if err != nil {
			return errors.WrapSession(id, remote, "bindings", err)
		}
		binds.Merge(shared)
	}
	log.Debug("%d bindings", binds.Len())

	if h.Capability == nil {
		return errors.WrapSession(id, remote, "evaluate", errors.ErrNoEvaluator)
	}

	sess := session.New(id, conn, stream.Input(), out, binds, log)
	sess.Metrics = h.Metrics

	if err := h.Capability.Handle(ctx, sess); err != nil && !errors.IsClosed(err) {
		return errors.WrapSession(id, remote, "evaluate", err)
	}
	return nil
}
