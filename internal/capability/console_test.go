package capability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telconsole/internal/bindings"
	"telconsole/internal/metrics"
	"telconsole/internal/session"
)

// runConsole feeds input to a console session and returns everything it
// wrote, including the terminal's echo of the input.
func runConsole(t *testing.T, input string, binds map[string]any) string {
	t.Helper()
	var out bytes.Buffer
	sess := newTestSession(input, &out, binds)
	sess.Metrics = metrics.New()

	c := &Console{NoColor: true, Version: "v0.0.0-test"}
	require.NoError(t, c.Handle(context.Background(), sess))
	return out.String()
}

func TestConsole_EvaluatesLine(t *testing.T) {
	out := runConsole(t, "1+1\r\n", nil)

	assert.Contains(t, out, "telconsole v0.0.0-test  session test")
	assert.Contains(t, out, "console:001> ")
	assert.Contains(t, out, "===> 2\r\n")
	assert.Contains(t, out, "console:002> ")
}

func TestConsole_LineEndings(t *testing.T) {
	for name, eol := range map[string]string{"crlf": "\r\n", "crnul": "\r\x00", "lf": "\n", "cr": "\r"} {
		t.Run(name, func(t *testing.T) {
			out := runConsole(t, "6*7"+eol+"2+2"+eol, nil)
			assert.Contains(t, out, "===> 42")
			assert.Contains(t, out, "===> 4")
			assert.Contains(t, out, "console:003> ")
		})
	}
}

func TestConsole_BlankLinesDoNotAdvancePrompt(t *testing.T) {
	out := runConsole(t, "\r\n\r\n", nil)
	assert.NotContains(t, out, "console:002>")
}

func TestConsole_ErrorKeepsSessionAlive(t *testing.T) {
	out := runConsole(t, "1/0\r\nmissing\r\n40+2\r\n", nil)

	assert.Contains(t, out, "error: division by zero")
	assert.Contains(t, out, "error: undefined: missing")
	assert.Contains(t, out, "===> 42")
}

func TestConsole_Quit(t *testing.T) {
	out := runConsole(t, ":quit\r\n1+1\r\n", nil)

	assert.Contains(t, out, "bye")
	assert.NotContains(t, out, "===> 2")
}

func TestConsole_CtrlDOnEmptyLineEnds(t *testing.T) {
	out := runConsole(t, "\x04", nil)
	assert.NotContains(t, out, "error")
}

func TestConsole_Ping(t *testing.T) {
	out := runConsole(t, ":ping\r\n", nil)
	assert.Contains(t, out, "pong\r\n")
}

func TestConsole_PrintGoesToConsoleBinding(t *testing.T) {
	out := runConsole(t, "println(\"hello\")\r\n", nil)

	assert.Contains(t, out, "hello\n")
	assert.NotContains(t, out, "===>")
}

func TestConsole_Vars(t *testing.T) {
	out := runConsole(t, ":set region \"eu-west\"\r\n:vars\r\n", map[string]any{"pid": int64(99)})

	assert.Contains(t, out, "===> eu-west")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "eu-west")
	assert.Contains(t, out, "pid")
	assert.Contains(t, out, "console")
	assert.Contains(t, out, "Total: 3 bindings.")
}

func TestConsole_Unset(t *testing.T) {
	var out bytes.Buffer
	sess := newTestSession("x = 1\r\n:unset x\r\n:unset console\r\n", &out, nil)
	require.NoError(t, (&Console{NoColor: true}).Handle(context.Background(), sess))

	_, ok := sess.Bindings.Get("x")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "error: cannot unset console")
}

func TestConsole_Stats(t *testing.T) {
	out := runConsole(t, ":stats\r\n", nil)
	assert.Contains(t, out, `"sessions_active"`)
}

func TestConsole_UnknownCommand(t *testing.T) {
	out := runConsole(t, ":frobnicate\r\n:help\r\n", nil)

	assert.Contains(t, out, "unknown command :frobnicate")
	assert.Contains(t, out, ":quit, :exit, :q")
}

func TestConsole_PromptName(t *testing.T) {
	var out bytes.Buffer
	sess := newTestSession("", &out, nil)
	require.NoError(t, (&Console{Prompt: "ops", NoColor: true}).Handle(context.Background(), sess))
	assert.Contains(t, out.String(), "ops:001> ")
}

func TestConsole_Color(t *testing.T) {
	var out bytes.Buffer
	sess := newTestSession("1\r\n", &out, nil)
	require.NoError(t, (&Console{}).Handle(context.Background(), sess))
	assert.Contains(t, out.String(), "\x1b[")
}

func TestConsole_NilBindings(t *testing.T) {
	var out bytes.Buffer
	sess := session.New("nb", nil, strings.NewReader("println(1)\r\n"), &out, nil, nil)
	require.NoError(t, (&Console{NoColor: true}).Handle(context.Background(), sess))

	require.NotNil(t, sess.Bindings)
	_, ok := sess.Bindings.Get(bindings.ConsoleName)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "1\r\n")
}

func TestConsole_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	sess := newTestSession("1+1\r\n", &out, nil)
	require.NoError(t, (&Console{NoColor: true}).Handle(ctx, sess))
	assert.NotContains(t, out.String(), "===>")
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("é", 70)
	got := truncate(long, maxCellWidth)
	assert.True(t, utf8.ValidString(got), "cut mid-rune: %q", got)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, runewidth.StringWidth(got), maxCellWidth)

	wide := truncate(strings.Repeat("漢", 40), 9)
	assert.True(t, utf8.ValidString(wide))
	assert.LessOrEqual(t, runewidth.StringWidth(wide), 9)
}

func TestConsole_VarsTruncatesMultibyte(t *testing.T) {
	out := runConsole(t, ":vars\r\n", map[string]any{"greeting": strings.Repeat("ü", 100)})
	assert.True(t, utf8.ValidString(out), "output holds a split rune")
	assert.Contains(t, out, "greeting")
	assert.Contains(t, out, "...")
}
