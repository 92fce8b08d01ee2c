package amalgam

import (
	"strings"

	"github.com/leapstack-labs/amalgam/internal/scanner"
)

// DefaultOnceGuards are the compile-once lines dropped from declarations.
// The root document keeps its own, which covers the whole amalgamation.
var DefaultOnceGuards = []string{"#pragma once"}

// Normalizer cleans module text before it is inlined.
type Normalizer struct {
	// Root is the root document name; markers naming it are removed.
	Root string
	// Dir is the directory of the module being cleaned, which its markers
	// resolve against. Empty means the top of the source directory.
	Dir string
	// OnceGuards are matched against whole trimmed lines.
	OnceGuards []string
}

// Declaration drops compile-once guard lines and markers pointing back at
// the root document.
func (n Normalizer) Declaration(text string) string {
	return n.stripGuards(n.stripSelf(text))
}

// Implementation drops markers pointing back at the root document.
func (n Normalizer) Implementation(text string) string {
	return n.stripSelf(text)
}

// stripSelf removes self-referential markers. A marker alone on its line
// takes the line with it; otherwise only the token goes.
func (n Normalizer) stripSelf(text string) string {
	dir := n.Dir
	if dir == "" {
		dir = "."
	}
	root := cleanPath(n.Root)

	var edits []edit
	for _, ref := range scanner.Scan(text) {
		if ref.Path == "" || ref.Resolve(dir) != root {
			continue
		}
		for _, span := range ref.Spans {
			edits = append(edits, edit{span: span, line: true})
		}
	}
	return applyEdits(text, edits)
}

func (n Normalizer) stripGuards(text string) string {
	if len(n.OnceGuards) == 0 {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, line := range lines {
		if n.isGuard(strings.TrimSpace(line)) {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

func (n Normalizer) isGuard(line string) bool {
	for _, g := range n.OnceGuards {
		if line == g {
			return true
		}
	}
	return false
}
