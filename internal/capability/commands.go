package capability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
)

var errQuit = errors.New("quit")

// maxCellWidth truncates values in the :vars table.
const maxCellWidth = 60

type command struct {
	names []string
	usage string
	help  string
	// rest is the raw text after the command name.
	run func(r *repl, args []string, rest string) error
}

var commands []command

func init() {
	commands = []command{
		{[]string{"help", "h", "?"}, "", "show this help", cmdHelp},
		{[]string{"vars"}, "", "list bindings", cmdVars},
		{[]string{"set"}, "NAME EXPR", "bind NAME to the value of EXPR", cmdSet},
		{[]string{"unset"}, "NAME...", "remove bindings", cmdUnset},
		{[]string{"stats"}, "", "show server metrics", cmdStats},
		{[]string{"ping"}, "", "reply pong", cmdPing},
		{[]string{"quit", "exit", "q"}, "", "close the session", cmdQuit},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		for _, n := range c.names {
			if n == name {
				return c, true
			}
		}
	}
	return command{}, false
}

// command runs a colon command; line excludes the leading colon.
func (r *repl) command(line string) error {
	words, err := shlex.Split(line, true)
	if err != nil {
		return fmt.Errorf("syntax error: %v", err)
	}
	if len(words) == 0 {
		return errors.New("missing command name (try :help)")
	}

	c, ok := lookupCommand(strings.ToLower(words[0]))
	if !ok {
		return fmt.Errorf("unknown command :%s (try :help)", words[0])
	}

	rest := strings.TrimSpace(line)
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		rest = strings.TrimSpace(rest[i:])
	} else {
		rest = ""
	}
	return c.run(r, words[1:], rest)
}

func cmdHelp(r *repl, _ []string, _ string) error {
	fmt.Fprintln(r.term, "Expressions:  1+1   x = 2*21   println(x)   console.print(\"hi\")   uptime()")
	fmt.Fprintln(r.term, "Commands:")
	for _, c := range commands {
		name := ":" + strings.Join(c.names, ", :")
		if c.usage != "" {
			name += " " + c.usage
		}
		fmt.Fprintf(r.term, "  %-24s %s\n", name, c.help)
	}
	fmt.Fprintln(r.term, "Ctrl-D on an empty line also closes the session.")
	return nil
}

func cmdVars(r *repl, _ []string, _ string) error {
	vars := r.sess.Bindings.Snapshot()

	table := tablewriter.NewWriter(r.term)
	table.SetHeader([]string{"Name", "Type", "Value"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCaption(true, fmt.Sprintf("Total: %d bindings.", len(vars)))
	for _, name := range r.sess.Bindings.Names() {
		v := vars[name]
		table.Append([]string{name, typeName(v), truncate(formatValue(v), maxCellWidth)})
	}
	table.Render()
	return nil
}

func cmdSet(r *repl, args []string, rest string) error {
	if len(args) < 2 {
		return errors.New("usage: :set NAME EXPR")
	}
	name := args[0]
	expr := strings.TrimSpace(strings.TrimPrefix(rest, name))
	v, err := r.eval.Assign(name, expr)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.term, "%s %s\n", r.color("===>", "green+b"), formatValue(v))
	return nil
}

func cmdUnset(r *repl, args []string, _ string) error {
	if len(args) == 0 {
		return errors.New("usage: :unset NAME...")
	}
	for _, name := range args {
		if !r.sess.Bindings.Delete(name) {
			return fmt.Errorf("cannot unset %s", name)
		}
	}
	return nil
}

func cmdStats(r *repl, _ []string, _ string) error {
	fmt.Fprintln(r.term, r.sess.Metrics.JSON())
	return nil
}

func cmdPing(r *repl, _ []string, _ string) error {
	fmt.Fprintln(r.term, "pong")
	return nil
}

func cmdQuit(*repl, []string, string) error { return errQuit }

// truncate shortens s to at most n terminal columns without splitting
// a character.
func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}
