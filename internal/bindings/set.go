// Package bindings holds the named values a console session can see:
// the per-session Set, the console print capability and the providers
// that contribute shared values to every non-debug session.
package bindings

import (
	"sort"

	"github.com/cyberinferno/go-utils/safemap"
)

// ConsoleName is the binding every session carries.  Providers cannot
// replace it.
const ConsoleName = "console"

// entry boxes a value so nil bindings survive the map's type assertion.
type entry struct{ v any }

// Set is one session's binding namespace.  A Set is created fresh for
// every connection and never shared between connections.
type Set struct {
	vars *safemap.SafeMap[string, entry]
}

// NewSet returns a Set holding only the console binding.
func NewSet(console Console) *Set {
	s := &Set{vars: safemap.NewSafeMap[string, entry]()}
	s.vars.Set(ConsoleName, entry{console})
	return s
}

// Get returns the value bound to name.
func (s *Set) Get(name string) (any, bool) {
	e, ok := s.vars.Get(name)
	return e.v, ok
}

// Set binds name to v, replacing any previous value.
func (s *Set) Set(name string, v any) {
	s.vars.Set(name, entry{v})
}

// Delete removes name and reports whether it was bound.  The console
// binding cannot be removed.
func (s *Set) Delete(name string) bool {
	if name == ConsoleName || !s.vars.Has(name) {
		return false
	}
	s.vars.Delete(name)
	return true
}

// Merge copies every entry of m into the set, except ConsoleName.
func (s *Set) Merge(m map[string]any) {
	for k, v := range m {
		if k == ConsoleName {
			continue
		}
		s.vars.Set(k, entry{v})
	}
}

// Console returns the session's console capability.
func (s *Set) Console() Console {
	v, _ := s.Get(ConsoleName)
	c, _ := v.(Console)
	return c
}

// Names returns the bound names in sorted order.
func (s *Set) Names() []string {
	var names []string
	s.vars.Range(func(k string, _ entry) bool {
		names = append(names, k)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of bindings.
func (s *Set) Len() int { return s.vars.Len() }

// Snapshot returns a shallow copy of the bindings.
func (s *Set) Snapshot() map[string]any {
	out := make(map[string]any)
	s.vars.Range(func(k string, e entry) bool {
		out[k] = e.v
		return true
	})
	return out
}
