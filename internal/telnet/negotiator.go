package telnet

import (
	"io"
	"sync"

	oi "github.com/reiver/go-oi"
)

// EncodeWill returns IAC WILL option.
func EncodeWill(option byte) []byte { return Will(option).Bytes() }

// EncodeWont returns IAC WONT option.
func EncodeWont(option byte) []byte { return Wont(option).Bytes() }

// Negotiator writes option commands straight to the raw connection.
// Commands bypass IAC escaping and are never acknowledged: the peer's
// DO/DONT replies are consumed by the Reader and only reported.
type Negotiator struct {
	w  io.Writer
	mu *sync.Mutex // shared with the Writer so commands never split a data chunk
}

// NewNegotiator returns a Negotiator writing to w.  mu may be nil when
// nothing else writes to w concurrently.
func NewNegotiator(w io.Writer, mu *sync.Mutex) *Negotiator {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Negotiator{w: w, mu: mu}
}

// Will sends IAC WILL option.
func (n *Negotiator) Will(option byte) error { return n.Send(Will(option)) }

// Wont sends IAC WONT option.
func (n *Negotiator) Wont(option byte) error { return n.Send(Wont(option)) }

// Send writes cmds in order as one contiguous write.
func (n *Negotiator) Send(cmds ...Command) error {
	if len(cmds) == 0 {
		return nil
	}
	buf := make([]byte, 0, 3*len(cmds))
	for _, c := range cmds {
		buf = append(buf, c.Bytes()...)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := oi.LongWrite(n.w, buf)
	return err
}

// ── Decoding ─────────────────────────────────────────────────────────

type state int

const (
	stateData   state = iota
	stateIAC          // saw IAC
	stateOption       // saw IAC + WILL/WONT/DO/DONT, option byte next
	stateSB           // inside subnegotiation
	stateSBIAC        // saw IAC inside subnegotiation
)

// decoder is the command half of the read-path state machine.  It is
// fed one raw byte at a time and reports either a data byte for the
// application or nothing (the byte belonged to a command).
type decoder struct {
	state state
	verb  byte

	// onCommand, when set, is called for every complete
	// WILL/WONT/DO/DONT received.
	onCommand func(Command)
}

// step consumes b.  It returns (b, true) when b is application data.
func (d *decoder) step(b byte) (byte, bool) {
	switch d.state {
	case stateData:
		if b == IAC {
			d.state = stateIAC
			return 0, false
		}
		return b, true

	case stateIAC:
		switch b {
		case IAC:
			// Escaped 0xFF: one literal data byte.
			d.state = stateData
			return IAC, true
		case WILL, WONT, DO, DONT:
			d.verb = b
			d.state = stateOption
		case SB:
			d.state = stateSB
		default:
			// Two-byte commands (NOP, GA, AYT, ...) and stray bytes
			// are swallowed.
			d.state = stateData
		}
		return 0, false

	case stateOption:
		d.state = stateData
		if d.onCommand != nil {
			d.onCommand(Command{Verb: d.verb, Option: b})
		}
		return 0, false

	case stateSB:
		if b == IAC {
			d.state = stateSBIAC
		}
		return 0, false

	case stateSBIAC:
		if b == SE {
			d.state = stateData
		} else {
			// IAC IAC is an escaped data byte inside the
			// subnegotiation; anything else is malformed.  Either
			// way keep discarding until IAC SE.
			d.state = stateSB
		}
		return 0, false
	}

	d.state = stateData
	return 0, false
}

// pending reports whether the decoder is in the middle of a command.
func (d *decoder) pending() bool { return d.state != stateData }
