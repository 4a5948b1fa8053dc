package bindings

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AlwaysHasConsole(t *testing.T) {
	var buf bytes.Buffer
	s := NewSet(NewConsole(&buf))

	require.NotNil(t, s.Console())
	assert.Equal(t, []string{"console"}, s.Names())

	require.NoError(t, s.Console().Println("hello"))
	assert.Equal(t, "hello\n", buf.String())
}

func TestSet_MergeKeepsConsole(t *testing.T) {
	c := NewConsole(&bytes.Buffer{})
	s := NewSet(c)

	s.Merge(map[string]any{"answer": int64(42), ConsoleName: "hijacked"})

	v, ok := s.Get("answer")
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
	assert.Same(t, c, s.Console())
	assert.Equal(t, 2, s.Len())
}

func TestSet_SetDelete(t *testing.T) {
	s := NewSet(NewConsole(&bytes.Buffer{}))

	s.Set("x", "1")
	assert.True(t, s.Delete("x"))
	assert.False(t, s.Delete("x"))
	assert.False(t, s.Delete(ConsoleName))

	_, ok := s.Get(ConsoleName)
	assert.True(t, ok)
}

func TestSet_SnapshotIsCopy(t *testing.T) {
	s := NewSet(NewConsole(&bytes.Buffer{}))
	s.Set("a", 1)

	snap := s.Snapshot()
	snap["b"] = 2

	_, ok := s.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "console"}, s.Names())
}

func TestSets_AreIndependent(t *testing.T) {
	a := NewSet(NewConsole(&bytes.Buffer{}))
	b := NewSet(NewConsole(&bytes.Buffer{}))

	a.Set("only_a", true)
	_, ok := b.Get("only_a")
	assert.False(t, ok)
	assert.NotSame(t, a.Console(), b.Console())
}

func TestConsole_Print(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.Print(2))
	require.NoError(t, c.Print("x"))
	require.NoError(t, c.Println(true))
	assert.Equal(t, "2xtrue\n", buf.String())
}

func TestSet_NilValue(t *testing.T) {
	s := NewSet(NewConsole(&bytes.Buffer{}))
	s.Merge(map[string]any{"nothing": nil})

	v, ok := s.Get("nothing")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Contains(t, s.Snapshot(), "nothing")
	assert.True(t, s.Delete("nothing"))
}

func TestSet_ConcurrentUse(t *testing.T) {
	s := NewSet(NewConsole(&bytes.Buffer{}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := fmt.Sprintf("v%d_%d", i, j)
				s.Set(name, j)
				s.Get(name)
				s.Names()
				s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8*100+1, s.Len())
	assert.False(t, s.Delete(ConsoleName))
}
