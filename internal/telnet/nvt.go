package telnet

import "io"

// LineReader folds the end-of-line forms a telnet client may send
// (CR LF, CR NUL, bare CR, bare LF) into a single eol byte.
type LineReader struct {
	src    io.Reader
	eol    byte
	lastCR bool
}

// NewLineReader wraps the filtered input r.  Terminal-style evaluators
// want eol '\r'; line-oriented programs want '\n'.
func NewLineReader(r io.Reader, eol byte) *LineReader {
	return &LineReader{src: r, eol: eol}
}

func (l *LineReader) Read(p []byte) (int, error) {
	for {
		n, err := l.src.Read(p)
		out := 0
		for _, b := range p[:n] {
			switch {
			case l.lastCR && (b == '\n' || b == 0):
				// Second half of CR LF / CR NUL.
				l.lastCR = false
				continue
			case b == '\r':
				l.lastCR = true
				p[out] = l.eol
			case b == '\n':
				l.lastCR = false
				p[out] = l.eol
			default:
				l.lastCR = false
				p[out] = b
			}
			out++
		}
		if out > 0 || err != nil {
			return out, err
		}
	}
}

// CRLFWriter turns bare LF into CR LF, as network virtual terminals
// expect.  Existing CR LF pairs are left alone.
type CRLFWriter struct {
	dst    io.Writer
	lastCR bool
}

// NewCRLFWriter wraps the filtered output w.
func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{dst: w}
}

func (c *CRLFWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == '\n' && !c.lastCR {
			out = append(out, '\r')
		}
		c.lastCR = b == '\r'
		out = append(out, b)
	}
	if _, err := c.dst.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
