package core

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"telconsole/internal/errors"
	"telconsole/internal/metrics"
	"telconsole/util"
)

// Server accepts console connections on a loopback address and runs a
// Handler on each one in its own goroutine.
type Server struct {
	Address     string // "127.0.0.1:3113"
	Handler     *Handler
	MaxConns    int           // 0 = unbounded
	Heartbeat   time.Duration // 0 disables the liveness log
	GracePeriod time.Duration
	Logger      *util.Logger
	Metrics     *metrics.Collector

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// Run listens on Address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Address)
	if err != nil {
		return errors.Wrap("listen", s.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop and the heartbeat on ln until ctx is
// cancelled or accepting fails.  It closes ln.  A cancelled context is
// a clean shutdown and yields nil; a listener failure is returned for
// the caller to report.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Logger.Info("console listening on %s", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.acceptLoop(gctx, ln) })
	g.Go(func() error {
		s.heartbeat(gctx)
		return nil
	})

	err := g.Wait()
	s.shutdown()
	return err
}

// ── Accept loop ──────────────────────────────────────────────────────

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	// Shut the listener down when the context expires.
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer func() {
		if stop() {
			ln.Close()
		}
	}()

	var sem *semaphore.Weighted
	if s.MaxConns > 0 {
		sem = semaphore.NewWeighted(int64(s.MaxConns))
	}

	for {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if sem != nil {
				sem.Release(1)
			}
			if ctx.Err() != nil {
				return nil
			}
			s.Metrics.RecordError(err.Error())
			return errors.Wrap("accept", ln.Addr().String(), err)
		}

		s.Logger.Verbose("connection from %s", conn.RemoteAddr())
		s.track(conn)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			if sem != nil {
				defer sem.Release(1)
			}
			s.Handler.Serve(ctx, conn)
		}()
	}
}

func (s *Server) track(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// ActiveConns returns the number of connections being served.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// ── Heartbeat ────────────────────────────────────────────────────────

func (s *Server) heartbeat(ctx context.Context) {
	if s.Heartbeat <= 0 {
		return
	}
	t := time.NewTicker(s.Heartbeat)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Metrics.RecordHeartbeat()
			s.Logger.Info("console alive: %s", s.Metrics.Snapshot().Summary())
		}
	}
}

// ── Shutdown ─────────────────────────────────────────────────────────

// shutdown expires every live connection so blocked reads and writes
// return, then waits up to GracePeriod for the handlers.  Handlers
// still close their own connections.
func (s *Server) shutdown() {
	s.mu.Lock()
	live := len(s.conns)
	for c := range s.conns {
		c.SetDeadline(time.Now()) //nolint:errcheck
	}
	s.mu.Unlock()

	if live == 0 {
		s.wg.Wait()
		return
	}
	s.Logger.Verbose("waiting for %d session(s)", live)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := s.GracePeriod
	if grace <= 0 {
		grace = time.Second
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.Logger.Warn("%d session(s) still running after %s", s.ActiveConns(), grace)
	}
}
