package bindings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Provider supplies shared bindings.  It is consulted once per
// non-debug session; the returned map must not be modified afterwards.
type Provider interface {
	Bindings(ctx context.Context) (map[string]any, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (map[string]any, error)

// Bindings calls f.
func (f ProviderFunc) Bindings(ctx context.Context) (map[string]any, error) { return f(ctx) }

// Func is a callable binding.  The console evaluates name(args...) by
// calling it.
type Func func(args ...any) (any, error)

// Static is a fixed set of bindings.
type Static map[string]any

// Bindings returns a copy of s.
func (s Static) Bindings(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

// Chain merges the providers in order; later providers win on
// duplicate names.  Nil providers are skipped.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (map[string]any, error) {
		out := make(map[string]any)
		for _, p := range providers {
			if p == nil {
				continue
			}
			m, err := p.Bindings(ctx)
			if err != nil {
				return nil, err
			}
			for k, v := range m {
				out[k] = v
			}
		}
		return out, nil
	})
}

// LoadFile returns a provider that reads a JSON object from path on
// every call.  Wrap it in NewCached to avoid re-reading per session.
func LoadFile(path string) Provider {
	return ProviderFunc(func(context.Context) (map[string]any, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read bindings: %w", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse bindings file %s: %w", path, err)
		}
		if m == nil {
			m = map[string]any{}
		}
		return m, nil
	})
}

// ProcessInfo exposes facts about the serving process: hostname, pid,
// version, start time and an uptime() function.
func ProcessInfo(version string, started time.Time) Provider {
	return ProviderFunc(func(context.Context) (map[string]any, error) {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		return map[string]any{
			"hostname": host,
			"pid":      int64(os.Getpid()),
			"version":  version,
			"started":  started.Format(time.RFC3339),
			"uptime": Func(func(...any) (any, error) {
				return strings.TrimSpace(humanize.RelTime(started, time.Now(), "", "")), nil
			}),
		}, nil
	})
}
