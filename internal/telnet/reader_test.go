package telnet

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telconsole/internal/metrics"
)

func TestReader_StripsCommands(t *testing.T) {
	raw := []byte{}
	raw = append(raw, IAC, DO, OptEcho)
	raw = append(raw, "1+"...)
	raw = append(raw, IAC, SB, 31, 0, 80, 0, 24, IAC, SE)
	raw = append(raw, "1"...)
	raw = append(raw, IAC, DONT, OptLinemode, IAC, NOP)
	raw = append(raw, "\n"...)

	got, err := io.ReadAll(NewReader(bytes.NewReader(raw), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "1+1\n", string(got))
}

func TestReader_PlainTextVerbatim(t *testing.T) {
	got, err := io.ReadAll(NewReader(bytes.NewReader([]byte("1+1\n")), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "1+1\n", string(got))
}

func TestReader_OneByteAtATime(t *testing.T) {
	raw := []byte{'a', IAC, WILL, 1, 'b', IAC, IAC, 'c', IAC, SB, 1, 2, IAC, SE, 'd'}
	r := NewReader(iotest.OneByteReader(bytes.NewReader(raw)), nil, nil)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', IAC, 'c', 'd'}, got)
}

func TestReader_SmallBuffer(t *testing.T) {
	raw := []byte{IAC, DO, 1, IAC, DO, 3, 'x', 'y'}
	r := NewReader(bytes.NewReader(raw), nil, nil)

	p := make([]byte, 1)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a read that only saw commands must keep going")
	assert.Equal(t, byte('x'), p[0])

	n, err = r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('y'), p[0])

	_, err = r.Read(p)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_CommandHook(t *testing.T) {
	var seen []Command
	m := metrics.New()
	raw := []byte{IAC, DO, OptEcho, IAC, DO, OptSuppressGoAhead, IAC, WONT, OptLinemode, 'q'}

	r := NewReader(bytes.NewReader(raw), func(c Command) { seen = append(seen, c) }, m)
	got, err := io.ReadAll(r)
	require.NoError(t, err)

	assert.Equal(t, "q", string(got))
	assert.Equal(t, []Command{
		{DO, OptEcho},
		{DO, OptSuppressGoAhead},
		{WONT, OptLinemode},
	}, seen)
	assert.EqualValues(t, 3, m.CommandsReceived())
	assert.EqualValues(t, len(raw), m.TotalBytesIn())
}

func TestReader_EOFInsideCommand(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{'a', IAC, WILL}), nil, nil)

	got, err := io.ReadAll(r)
	require.NoError(t, err, "a truncated command is an ordinary end of stream")
	assert.Equal(t, "a", string(got))
}

func TestReader_PropagatesError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(iotest.ErrReader(boom), nil, nil)

	_, err := r.Read(make([]byte, 8))
	assert.ErrorIs(t, err, boom)
}

func TestReader_NeverLeaksBareIAC(t *testing.T) {
	// Every 0xFF in the output must come from an IAC IAC pair.
	raw := []byte{IAC, IAC, IAC, WILL, IAC, IAC, NOP, IAC, IAC}
	got, err := io.ReadAll(NewReader(bytes.NewReader(raw), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, IAC}, got)
}
