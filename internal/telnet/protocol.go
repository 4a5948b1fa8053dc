// Package telnet implements the small subset of the telnet protocol the
// console needs: a fire-and-forget option negotiator and a stream filter
// that strips commands from the peer's input and escapes IAC in the
// application's output.
//
// Layering:
//
//	net.Conn  →  Stream (Reader + Writer + Negotiator)  →  evaluator
//
// The filter never rewrites data bytes other than IAC.  End-of-line
// translation for evaluators that want it lives in nvt.go.
package telnet

import "fmt"

// Command bytes (RFC 854).
const (
	SE   byte = 240 // end of subnegotiation
	NOP  byte = 241
	DM   byte = 242 // data mark
	BRK  byte = 243
	IP   byte = 244 // interrupt process
	AO   byte = 245 // abort output
	AYT  byte = 246 // are you there
	EC   byte = 247 // erase character
	EL   byte = 248 // erase line
	GA   byte = 249 // go ahead
	SB   byte = 250 // begin subnegotiation
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255 // interpret as command
)

// Option codes used by the console.
const (
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// Command is a three-byte option negotiation command.
type Command struct {
	Verb   byte // WILL, WONT, DO or DONT
	Option byte
}

// Will returns the command announcing that we will perform option.
func Will(option byte) Command { return Command{Verb: WILL, Option: option} }

// Wont returns the command refusing option on our side.
func Wont(option byte) Command { return Command{Verb: WONT, Option: option} }

// Bytes returns the wire encoding IAC verb option.
func (c Command) Bytes() []byte { return []byte{IAC, c.Verb, c.Option} }

func (c Command) String() string {
	return VerbName(c.Verb) + " " + OptionName(c.Option)
}

// Preamble is sent once on every new connection, before any data: the
// server refuses line-mode, and takes over echo and go-ahead
// suppression so the client switches to character-at-a-time input.
var Preamble = []Command{
	Wont(OptLinemode),
	Will(OptEcho),
	Will(OptSuppressGoAhead),
}

// VerbName returns a readable name for a negotiation verb.
func VerbName(b byte) string {
	switch b {
	case WILL:
		return "WILL"
	case WONT:
		return "WONT"
	case DO:
		return "DO"
	case DONT:
		return "DONT"
	}
	return fmt.Sprintf("CMD(%d)", b)
}

// OptionName returns a readable name for an option code.
func OptionName(b byte) string {
	switch b {
	case OptEcho:
		return "ECHO"
	case OptSuppressGoAhead:
		return "SUPPRESS-GO-AHEAD"
	case OptLinemode:
		return "LINEMODE"
	}
	return fmt.Sprintf("OPTION(%d)", b)
}
