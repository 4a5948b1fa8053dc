// Package health probes a running console: it connects as an ordinary
// telnet client, issues :ping and waits for the pong.
package health

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	oi "github.com/reiver/go-oi"
	gotelnet "github.com/reiver/go-telnet"

	"telconsole/internal/errors"
	"telconsole/internal/retry"
)

const (
	pingLine = ":ping\r\n"
	quitLine = ":quit\r\n"
	pong     = "pong"

	// readLimit bounds how much output is scanned for the reply.
	readLimit = 64 << 10
)

// Check dials addr and runs one ping exchange within timeout.  It
// returns nil only if the console answered.
func Check(ctx context.Context, addr string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := gotelnet.DialTo(addr)
	if err != nil {
		return errors.Wrap("dial", addr, err)
	}
	defer conn.Close()

	// The client has no deadlines; closing it unblocks a pending read.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := oi.LongWrite(conn, []byte(pingLine)); err != nil {
		return probeErr(ctx, addr, "write", err)
	}

	// The client fills whatever buffer it is given, so read bytewise.
	var seen bytes.Buffer
	b := make([]byte, 1)
	for !bytes.Contains(seen.Bytes(), []byte(pong)) {
		if seen.Len() >= readLimit {
			return fmt.Errorf("%w: no %q in %d bytes from %s", errors.ErrUnhealthy, pong, seen.Len(), addr)
		}
		if _, err := conn.Read(b); err != nil {
			return probeErr(ctx, addr, "read", err)
		}
		seen.WriteByte(b[0])
	}

	oi.LongWrite(conn, []byte(quitLine)) //nolint:errcheck
	return nil
}

// probeErr classifies a failed exchange.  A probe that ran out of time
// may be talking to a console that is still starting, so it is marked
// retryable; a peer that hung up or sent garbage is not.
func probeErr(ctx context.Context, addr, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errors.ErrUnhealthy, &errors.NetworkError{
			Op: op, Addr: addr, Err: ctx.Err(), Retryable: true,
		})
	}
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("peer closed the connection before answering: %w", err)
	}
	return fmt.Errorf("%w: %w", errors.ErrUnhealthy, errors.Wrap(op, addr, err))
}

// Wait repeats Check with backoff until the console answers or ctx
// ends.  Only retryable failures (refused dials, probe timeouts) are
// retried; reaching something that is not a console fails at once.
// A nil b uses [retry.DefaultBackoff].
func Wait(ctx context.Context, addr string, timeout time.Duration, b *retry.Backoff) error {
	if b == nil {
		b = retry.DefaultBackoff()
	}
	return b.Do(ctx, func(int) error {
		err := Check(ctx, addr, timeout)
		if err != nil && !errors.IsRetryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
}
