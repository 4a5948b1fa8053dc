package telnet

import (
	"io"
	"sync"

	oi "github.com/reiver/go-oi"

	"telconsole/internal/metrics"
	"telconsole/util"
)

// Writer is the filtered output side of a connection: application bytes
// pass through unchanged except IAC, which is doubled so the peer never
// mistakes data for a command.
type Writer struct {
	dst     io.Writer
	mu      *sync.Mutex
	metrics *metrics.Collector
}

// NewWriter wraps the raw stream dst.  mu serialises writes with the
// Negotiator sharing dst and may be nil.
func NewWriter(dst io.Writer, mu *sync.Mutex, m *metrics.Collector) *Writer {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Writer{dst: dst, mu: mu, metrics: m}
}

// Write escapes p and writes it in full.  The returned count is in
// application bytes.
func (w *Writer) Write(p []byte) (int, error) {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)

	// Worst case every byte doubles.
	chunk := len(*bufp) / 2

	w.mu.Lock()
	defer w.mu.Unlock()

	written := 0
	for written < len(p) {
		end := written + chunk
		if end > len(p) {
			end = len(p)
		}
		out := AppendEscaped((*bufp)[:0], p[written:end])

		n, err := oi.LongWrite(w.dst, out)
		w.metrics.BytesSent(n)
		if err != nil {
			return written + dataCount(p[written:end], int(n)), err
		}
		written = end
	}
	return written, nil
}

// AppendEscaped appends p to dst with every IAC doubled.
func AppendEscaped(dst, p []byte) []byte {
	for _, b := range p {
		if b == IAC {
			dst = append(dst, IAC, IAC)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}

// Escape returns a copy of p with every IAC doubled.
func Escape(p []byte) []byte {
	return AppendEscaped(make([]byte, 0, len(p)), p)
}

// dataCount maps wire bytes written back to whole application bytes of
// p that made it out.
func dataCount(p []byte, wire int) int {
	n := 0
	for _, b := range p {
		size := 1
		if b == IAC {
			size = 2
		}
		if wire < size {
			break
		}
		wire -= size
		n++
	}
	return n
}
