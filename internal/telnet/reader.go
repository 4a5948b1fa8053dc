package telnet

import (
	"io"

	"telconsole/internal/metrics"
	"telconsole/util"
)

// Reader is the filtered input side of a connection.  It returns only
// application data: negotiation commands, subnegotiations and other
// control sequences are consumed, and IAC IAC yields a single 0xFF.
type Reader struct {
	src     io.Reader
	dec     decoder
	metrics *metrics.Collector
}

// NewReader wraps the raw stream src.  onCommand, if non-nil, observes
// every negotiation command the peer sends.
func NewReader(src io.Reader, onCommand func(Command), m *metrics.Collector) *Reader {
	r := &Reader{src: src, metrics: m}
	r.dec.onCommand = func(c Command) {
		m.CommandReceived()
		if onCommand != nil {
			onCommand(c)
		}
	}
	return r
}

// Read fills p with filtered data.  It keeps reading while the raw
// bytes decode to nothing, so it never returns 0, nil.  A clean peer
// disconnect surfaces as io.EOF, even when it cuts a command short.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)

	raw := *bufp
	if len(p) < len(raw) {
		// Filtering never expands, so len(p) raw bytes always fit.
		raw = raw[:len(p)]
	}

	for {
		m, err := r.src.Read(raw)
		r.metrics.BytesReceived(int64(m))

		n := 0
		for _, b := range raw[:m] {
			if c, ok := r.dec.step(b); ok {
				p[n] = c
				n++
			}
		}

		if n > 0 || err != nil {
			return n, err
		}
	}
}
