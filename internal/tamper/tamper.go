// Package tamper provides payload transformation functions that help stored
// payloads get past input filters that match on exact tag or attribute text.
//
// Tampers are applied to the payload set once, before the scan starts, so
// the detector compares page content against the exact string that was
// submitted. Tampers can be composed into a Chain that applies them in order.
//
// Built-in tampers:
//   - uppercase:   Upper-cases tag names and event handler attributes
//   - mixedcase:   Alternates the case of tag names (<sCrIpT>)
//   - space2slash: Replaces spaces inside tags with "/" (<img/src=x/...>)
//
// Usage:
//
//	chain, err := tamper.Parse("space2slash,uppercase")
//	payloads = chain.ApplyAll(payloads)
package tamper

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Tamper transforms a raw XSS payload string.
type Tamper interface {
	// Name returns the tamper's short identifier (e.g. "space2slash").
	Name() string
	// Apply transforms the payload string and returns the modified version.
	Apply(s string) string
}

// Chain applies multiple tampers sequentially.
type Chain []Tamper

// Apply runs each tamper in order and returns the fully-transformed string.
func (c Chain) Apply(s string) string {
	for _, t := range c {
		s = t.Apply(s)
	}
	return s
}

// ApplyAll returns a new slice with the chain applied to every payload.
func (c Chain) ApplyAll(payloads []string) []string {
	out := make([]string, len(payloads))
	for i, p := range payloads {
		out[i] = c.Apply(p)
	}
	return out
}

// Names returns the names of the tampers in the chain.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}
	return names
}

// registry maps tamper names to their constructors.
var registry = map[string]func() Tamper{
	"uppercase":   func() Tamper { return &uppercaseTamper{} },
	"mixedcase":   func() Tamper { return &mixedcaseTamper{} },
	"space2slash": func() Tamper { return &space2slashTamper{} },
}

// Lookup returns the Tamper for the given name, or nil if not found.
func Lookup(name string) Tamper {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil
	}
	return fn()
}

// Available returns all registered tamper names in alphabetical order.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse builds a Chain from a comma-separated list of names, rejecting
// unknown ones. An empty list yields an empty chain.
func Parse(list string) (Chain, error) {
	var chain Chain
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t := Lookup(name)
		if t == nil {
			return nil, fmt.Errorf("unknown tamper %q (available: %s)", name, strings.Join(Available(), ", "))
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// tagPattern matches a tag opener and its name, e.g. "<script" or "</svg".
var tagPattern = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*`)

// handlerPattern matches an event handler attribute name, e.g. "onerror=".
var handlerPattern = regexp.MustCompile(`(?i)\bon[a-z]+=`)

// tagBodyPattern matches a whole start tag.
var tagBodyPattern = regexp.MustCompile(`<[A-Za-z][^>]*>?`)
