package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"telconsole/internal/bindings"
	"telconsole/internal/session"
	"telconsole/internal/telnet"
)

// EnvPrefix prefixes every binding exported to a child process.
const EnvPrefix = "CONSOLE_"

// Exec wires a console connection to a child process's stdio.
// Either Program (-e) or Command (-c) must be set.
type Exec struct {
	Program string // -e: execute a program directly
	Command string // -c: execute via the system shell

	// Echo copies the peer's input back to it.  The server has
	// claimed the echo option, so without it nothing typed is shown.
	Echo bool

	// WaitDelay bounds how long Handle waits for the stdio copies
	// after the process exits.  Zero means one second.
	WaitDelay time.Duration
}

// Handle starts the child process with the session's filtered streams
// as its stdin/stdout/stderr and the binding set in its environment.
func (e *Exec) Handle(ctx context.Context, sess *session.Session) error {
	var cmd *exec.Cmd

	switch {
	case e.Command != "":
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd.exe", "/C", e.Command)
		} else {
			cmd = exec.CommandContext(ctx, "/bin/sh", "-c", e.Command)
		}
	case e.Program != "":
		cmd = exec.CommandContext(ctx, e.Program)
	default:
		return fmt.Errorf("no command specified for exec mode")
	}

	out := &lockedWriter{w: telnet.NewCRLFWriter(sess.Stdout)}
	var in io.Reader = telnet.NewLineReader(sess.Stdin, '\n')
	if e.Echo {
		in = io.TeeReader(in, out)
	}

	cmd.Stdin = in
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = append(os.Environ(), BindingEnv(sess.Bindings)...)
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}

	if sess.Logger != nil {
		sess.Logger.Debug("exec: %s", cmd.String())
	}

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrWaitDelay) {
			// The process exited cleanly; only the stdin copy was
			// still blocked on the peer.
			return nil
		}
		return fmt.Errorf("exec %q: %w", cmd.Path, err)
	}
	return nil
}

// lockedWriter serialises the echo copy with the child's output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// BindingEnv renders the scalar and JSON-encodable bindings as
// CONSOLE_<NAME>=value pairs, sorted by name.  The console binding and
// functions are skipped.
func BindingEnv(set *bindings.Set) []string {
	if set == nil {
		return nil
	}
	var env []string
	for name, v := range set.Snapshot() {
		s, ok := envValue(v)
		if !ok || name == bindings.ConsoleName {
			continue
		}
		env = append(env, EnvPrefix+envName(name)+"="+s)
	}
	sort.Strings(env)
	return env
}

func envName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func envValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil, bindings.Func, bindings.Console:
		return "", false
	case string:
		return x, true
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
	return formatValue(v), true
}
