package bindings

import (
	"fmt"
	"io"
	"sync"
)

// Console is the print capability bound as "console" in every session.
type Console interface {
	Print(v any) error
	Println(v any) error
}

type writerConsole struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console printing to w, usually the session's
// filtered output.
func NewConsole(w io.Writer) Console {
	return &writerConsole{w: w}
}

func (c *writerConsole) Print(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprint(c.w, v)
	return err
}

func (c *writerConsole) Println(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, v)
	return err
}

func (c *writerConsole) String() string { return "<console>" }
