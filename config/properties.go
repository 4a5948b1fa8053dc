package config

// properties.go - the console section of a Java-style .properties file.
//
// Recognised keys, under the groovyConsole. prefix used by existing
// deployments or the shorter console. alias:
//
//	groovyConsole.listenPort       int
//	groovyConsole.debug            any non-empty value enables debug mode
//	groovyConsole.maxConnections   int
//	groovyConsole.heartbeat        seconds
//	groovyConsole.exec             program path
//	groovyConsole.command          shell command
//	groovyConsole.prompt           prompt name
//	groovyConsole.bindingsFile     JSON bindings file
//	groovyConsole.bind.<name>      extra binding
//
// When both spellings are present the groovyConsole. key wins.  Unknown
// keys are ignored so the file can be shared with other modules.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"telconsole/internal/errors"
)

// Key prefixes, in order of preference.
const (
	KeyPrefix   = "groovyConsole."
	AliasPrefix = "console."
)

// bindSection introduces binding keys under either prefix.
const bindSection = "bind."

// Properties is a parsed properties file.
type Properties map[string]string

// LoadProperties reads and parses the file at path.
func LoadProperties(path string) (Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	defer f.Close()
	return ParseProperties(f)
}

// ParseProperties parses the properties format: key=value, key:value or
// key value; '#' and '!' comments; backslash line continuations and
// escapes including \uXXXX.
func ParseProperties(r io.Reader) (Properties, error) {
	props := Properties{}
	sc := bufio.NewScanner(r)

	var logical strings.Builder
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if logical.Len() == 0 {
			line = strings.TrimLeft(line, " \t\f")
			if line == "" || line[0] == '#' || line[0] == '!' {
				continue
			}
		} else {
			line = strings.TrimLeft(line, " \t\f")
		}

		if continued(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)

		key, value, err := splitProperty(logical.String())
		logical.Reset()
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %v", errors.ErrInvalidProperty, lineNo, err)
		}
		props[key] = value
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if logical.Len() > 0 {
		key, value, err := splitProperty(logical.String())
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %v", errors.ErrInvalidProperty, lineNo, err)
		}
		props[key] = value
	}
	return props, nil
}

// continued reports whether line ends in an odd number of backslashes.
func continued(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func splitProperty(line string) (string, string, error) {
	end := len(line)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			end = i
			break
		}
	}
	rawKey := line[:end]
	rest := strings.TrimLeft(line[end:], " \t\f")
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " \t\f")
	}

	key, err := unescape(rawKey)
	if err != nil {
		return "", "", err
	}
	value, err := unescape(rest)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("short \\u escape")
			}
			r, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("bad \\u escape %q", s[i+1:i+5])
			}
			var buf [utf8.UTFMax]byte
			n := utf8.EncodeRune(buf[:], rune(r))
			b.Write(buf[:n])
			i += 4
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

// Lookup returns the value of name under KeyPrefix, falling back to
// AliasPrefix, and the full key it was found under.
func (p Properties) Lookup(name string) (value, key string, ok bool) {
	for _, prefix := range []string{KeyPrefix, AliasPrefix} {
		if v, found := p[prefix+name]; found {
			return v, prefix + name, true
		}
	}
	return "", "", false
}

// Apply overlays the console properties onto cfg.  Fields whose flag
// skip reports as set are left alone; bindings already present in
// cfg.Binds win over bind.* entries.
func (p Properties) Apply(cfg *Config, skip SkipFunc) error {
	if skip == nil {
		skip = noSkip
	}

	intProp := func(name, flag string, dst *int) error {
		v, key, ok := p.Lookup(name)
		if !ok || skip(flag) {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &errors.ConfigError{Field: flag, Value: v, Message: "property " + key + " is not an integer"}
		}
		*dst = n
		return nil
	}
	strProp := func(name, flag string, dst *string) {
		if v, _, ok := p.Lookup(name); ok && v != "" && !skip(flag) {
			*dst = v
		}
	}

	if err := intProp("listenPort", "port", &cfg.Port); err != nil {
		return err
	}
	if err := intProp("maxConnections", "max-conns", &cfg.MaxConns); err != nil {
		return err
	}
	var hb int
	if err := intProp("heartbeat", "heartbeat", &hb); err != nil {
		return err
	}
	if hb > 0 {
		cfg.Heartbeat = secondsDuration(hb)
	}
	// Any non-empty value turns debug on, "false" included.
	if v, _, ok := p.Lookup("debug"); ok && len(v) != 0 && !skip("debug") {
		cfg.Debug = true
	}

	strProp("exec", "exec", &cfg.Execute)
	strProp("command", "command", &cfg.Command)
	strProp("prompt", "prompt", &cfg.Prompt)
	strProp("bindingsFile", "bindings-file", &cfg.BindingsFile)

	if cfg.Binds == nil {
		cfg.Binds = map[string]any{}
	}
	// Flags were applied first and KeyPrefix is scanned before
	// AliasPrefix, so the first value seen for a name wins.
	for _, prefix := range []string{KeyPrefix, AliasPrefix} {
		for k, v := range p {
			name, ok := strings.CutPrefix(k, prefix+bindSection)
			if !ok {
				continue
			}
			if !validName(name) {
				return &errors.ConfigError{Field: "bind", Value: k, Message: "binding names must be identifiers"}
			}
			if _, set := cfg.Binds[name]; set {
				continue
			}
			cfg.Binds[name] = ParseValue(v)
		}
	}
	return nil
}
