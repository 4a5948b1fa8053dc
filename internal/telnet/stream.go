package telnet

import (
	"io"
	"sync"

	"telconsole/internal/metrics"
)

// Stream is the filtered pair derived from one raw connection, plus
// the negotiator that shares its write side.
type Stream struct {
	*Negotiator

	in  *Reader
	out *Writer
}

// StreamOption customises a Stream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	onCommand func(Command)
	metrics   *metrics.Collector
}

// WithCommandHook observes negotiation commands received from the peer.
func WithCommandHook(fn func(Command)) StreamOption {
	return func(c *streamConfig) { c.onCommand = fn }
}

// WithMetrics counts raw traffic and received commands.
func WithMetrics(m *metrics.Collector) StreamOption {
	return func(c *streamConfig) { c.metrics = m }
}

// NewStream wraps the raw connection rw.
func NewStream(rw io.ReadWriter, opts ...StreamOption) *Stream {
	var cfg streamConfig
	for _, o := range opts {
		o(&cfg)
	}

	mu := &sync.Mutex{}
	return &Stream{
		Negotiator: NewNegotiator(rw, mu),
		in:         NewReader(rw, cfg.onCommand, cfg.metrics),
		out:        NewWriter(rw, mu, cfg.metrics),
	}
}

// Input returns the filtered application input.
func (s *Stream) Input() io.Reader { return s.in }

// Output returns the escaping application output.
func (s *Stream) Output() io.Writer { return s.out }

// Negotiate sends the connection preamble.
func (s *Stream) Negotiate() error { return s.Send(Preamble...) }
