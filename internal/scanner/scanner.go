// Package scanner finds quoted include markers in a root document.
//
// A marker has the form
//
//	#include "relative/name.h"
//
// and names another declaration file. Angle-bracket includes are system
// headers and never markers. The scanner makes a single left-to-right pass,
// recording the byte span, line and column of every occurrence, and reports
// each distinct marker once in first-occurrence order.
package scanner

import (
	"path"
	"strings"
)

// Directive is the keyword that opens a reference marker.
const Directive = "#include"

// Span locates one occurrence of a marker in the scanned text.
type Span struct {
	Offset int // byte offset of the leading '#'
	End    int // byte offset just past the closing quote
	Line   int // 1-based
	Column int // 1-based, in bytes
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Offset }

// Reference is one distinct marker and every place it occurs.
type Reference struct {
	// Marker is the full token, from '#' to the closing quote. It is the
	// substitution key: identical markers are expanded identically.
	Marker string
	// Path is the quoted relative file name.
	Path string
	// Spans lists every occurrence in document order.
	Spans []Span
}

// First returns the first occurrence of the marker.
func (r Reference) First() Span { return r.Spans[0] }

// Clean returns the referenced path as a cleaned slash path.
func (r Reference) Clean() string {
	return path.Clean(strings.ReplaceAll(r.Path, "\\", "/"))
}

// HasExt reports whether the referenced path ends with ext and names more
// than the extension.
func (r Reference) HasExt(ext string) bool {
	if r.Path == "" || ext == "" {
		return false
	}
	base := path.Base(r.Clean())
	return strings.HasSuffix(base, ext) && len(base) > len(ext)
}

// Module returns the module name: the cleaned path with declExt stripped.
// Spellings of one file such as "a.h" and "./a.h" share a module name.
func (r Reference) Module(declExt string) string {
	return strings.TrimSuffix(r.Clean(), declExt)
}

// ImplPath returns the implementation file paired with the declaration.
func (r Reference) ImplPath(declExt, implExt string) string {
	return r.Module(declExt) + implExt
}

// Resolve returns the referenced path joined to dir, the directory of the
// document holding the marker. An absolute path resolves to itself.
func (r Reference) Resolve(dir string) string {
	p := r.Clean()
	if path.IsAbs(p) {
		return p
	}
	return path.Join(dir, p)
}

// Scan returns the distinct markers in text, ordered by first occurrence.
// A document without markers yields an empty slice.
func Scan(text string) []Reference {
	s := &scanner{input: text, line: 1, col: 1}
	return s.scan()
}

type scanner struct {
	input string
	pos   int
	line  int
	col   int
}

func (s *scanner) scan() []Reference {
	refs := []Reference{}
	index := make(map[string]int)

	for s.pos < len(s.input) {
		c := s.input[s.pos]
		if c == '#' {
			if end, p, ok := s.matchAt(s.pos); ok {
				marker := s.input[s.pos:end]
				span := Span{Offset: s.pos, End: end, Line: s.line, Column: s.col}
				if i, seen := index[marker]; seen {
					refs[i].Spans = append(refs[i].Spans, span)
				} else {
					index[marker] = len(refs)
					refs = append(refs, Reference{Marker: marker, Path: p, Spans: []Span{span}})
				}
				// markers never contain a newline
				s.col += end - s.pos
				s.pos = end
				continue
			}
		}
		s.advance(c)
	}
	return refs
}

// matchAt tries to read a marker starting at i. It returns the end offset
// and the quoted path.
func (s *scanner) matchAt(i int) (int, string, bool) {
	if !strings.HasPrefix(s.input[i:], Directive) {
		return 0, "", false
	}
	j := i + len(Directive)
	blank := j
	for j < len(s.input) && (s.input[j] == ' ' || s.input[j] == '\t') {
		j++
	}
	if j == blank || j >= len(s.input) || s.input[j] != '"' {
		return 0, "", false
	}
	start := j + 1
	for k := start; k < len(s.input); k++ {
		switch s.input[k] {
		case '"':
			return k + 1, s.input[start:k], true
		case '\n', '\r':
			return 0, "", false
		}
	}
	return 0, "", false
}

func (s *scanner) advance(c byte) {
	s.pos++
	if c == '\n' {
		s.line++
		s.col = 1
		return
	}
	s.col++
}
