// Package frontend defines the dialect front-end capability and the
// process-wide front-end registry. Each supported dialect registers exactly
// one FrontEnd in its package init; the registry is frozen after process
// start and read concurrently without synchronization.
package frontend

import (
	"sort"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/uir"
)

// AST is a dialect-specific parse tree. It is opaque to everything except
// the front-end that produced it and never escapes past lowering.
type AST interface {
	// Dialect returns the tag of the dialect this tree was parsed from.
	Dialect() string
}

// FrontEnd turns source text in one dialect into a lowered UIR program.
// Parse and Lower are pure functions of their inputs and perform no I/O.
type FrontEnd interface {
	// Name returns the dialect tag this front-end handles.
	Name() string

	// Parse turns source text into a dialect AST, or a structured
	// ParseError on malformed input.
	Parse(source string) (AST, error)

	// Lower converts a dialect AST into the UIR, resolving gate aliases
	// through the canonical table and checking register bounds.
	Lower(ast AST) (*uir.Program, error)
}

// registry holds all registered front-ends, keyed by dialect tag. Populated
// exclusively from package init functions; no runtime mutation path exists.
var registry = make(map[string]FrontEnd)

// Register adds a front-end for its dialect tag. Called from init in each
// dialect package; duplicate registration panics because it is a programming
// error, not a runtime condition.
func Register(fe FrontEnd) {
	tag := fe.Name()
	if _, exists := registry[tag]; exists {
		panic("frontend: duplicate registration for dialect " + tag)
	}
	registry[tag] = fe
}

// Lookup returns the front-end for a dialect tag, or an
// UnsupportedLanguageError naming the registered tags.
func Lookup(tag string) (FrontEnd, error) {
	if fe, ok := registry[tag]; ok {
		return fe, nil
	}
	return nil, errors.NewUnsupportedLanguage(tag, List())
}

// List returns the registered dialect tags in sorted order.
func List() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
