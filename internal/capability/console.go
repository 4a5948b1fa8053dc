package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mgutz/ansi"
	"golang.org/x/term"

	"telconsole/internal/bindings"
	"telconsole/internal/session"
	"telconsole/internal/telnet"
)

// DefaultPrompt is the prompt name used when Console.Prompt is empty.
const DefaultPrompt = "console"

// Console is the built-in evaluator: a line-edited expression REPL over
// the session's binding set.
type Console struct {
	Prompt  string // prompt name, rendered as "<name>:NNN> "
	NoColor bool
	Version string // shown in the banner
}

// Handle runs the REPL until the peer disconnects, sends Ctrl-D on an
// empty line, or enters :quit.
func (c *Console) Handle(ctx context.Context, sess *session.Session) error {
	rw := struct {
		io.Reader
		io.Writer
	}{telnet.NewLineReader(sess.Stdin, '\r'), sess.Stdout}

	t := term.NewTerminal(rw, "")
	if sess.Bindings == nil {
		sess.Bindings = bindings.NewSet(bindings.NewConsole(t))
	}

	r := &repl{
		cfg:  c,
		sess: sess,
		term: t,
		eval: &Evaluator{Bindings: sess.Bindings},
	}
	return r.run(ctx)
}

type repl struct {
	cfg  *Console
	sess *session.Session
	term *term.Terminal
	eval *Evaluator
	line int
}

func (r *repl) run(ctx context.Context) error {
	r.banner()

	for r.line = 1; ; {
		if ctx.Err() != nil {
			return nil
		}
		r.term.SetPrompt(r.prompt())

		input, err := r.term.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line++

		if strings.HasPrefix(input, ":") {
			if err := r.command(input[1:]); err != nil {
				if errors.Is(err, errQuit) {
					fmt.Fprintln(r.term, "bye")
					return nil
				}
				r.errorf("%v", err)
			}
			continue
		}

		v, ok, err := r.eval.Eval(input)
		if err != nil {
			r.errorf("%v", err)
			continue
		}
		if ok {
			fmt.Fprintf(r.term, "%s %s\n", r.color("===>", "green+b"), formatValue(v))
		}
	}
}

func (r *repl) banner() {
	name := "telconsole"
	if r.cfg.Version != "" {
		name += " " + r.cfg.Version
	}
	fmt.Fprintf(r.term, "%s  session %s\n", r.color(name, "magenta+b"), r.sess.ID)
	fmt.Fprintln(r.term, "Type an expression, or :help for commands.")
}

func (r *repl) prompt() string {
	name := r.cfg.Prompt
	if name == "" {
		name = DefaultPrompt
	}
	return r.color(fmt.Sprintf("%s:%03d>", name, r.line), "cyan+b") + " "
}

func (r *repl) errorf(format string, args ...interface{}) {
	fmt.Fprintf(r.term, "%s %s\n", r.color("error:", "red+b"), fmt.Sprintf(format, args...))
}

func (r *repl) color(s, style string) string {
	if r.cfg.NoColor {
		return s
	}
	return ansi.Color(s, style)
}
