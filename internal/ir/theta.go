package ir

import (
	"sort"
	"strings"
)

// Theta is a substitution from variable name to term.
// Theta values are treated as immutable once returned; use Clone before
// extending one that may be shared.
type Theta map[string]Term

// Clone returns a shallow copy. Terms are immutable, so this is enough.
func (t Theta) Clone() Theta {
	out := make(Theta, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Compose returns a substitution equivalent to applying t then other.
// Bindings of t are rewritten under other; bindings of other that t does not
// mention are added.
func (t Theta) Compose(other Theta) Theta {
	out := make(Theta, len(t)+len(other))
	for k, v := range t {
		out[k] = v.Substitute(other)
	}
	for k, v := range other {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Resolve returns the fully substituted binding of name.
func (t Theta) Resolve(name string) (Term, bool) {
	v, ok := t[name]
	if !ok {
		return nil, false
	}
	return v.Substitute(t), true
}

// Restrict returns the bindings for the given names only, fully
// substituted.
func (t Theta) Restrict(names []string) Theta {
	out := make(Theta, len(names))
	for _, n := range names {
		if v, ok := t.Resolve(n); ok {
			out[n] = v
		}
	}
	return out
}

// SortedKeys returns the bound names in lexical order.
func (t Theta) SortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Theta) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range t.SortedKeys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(t[k].String())
	}
	b.WriteByte('}')
	return b.String()
}
