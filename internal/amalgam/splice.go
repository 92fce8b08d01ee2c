package amalgam

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/amalgam/internal/scanner"
)

// RootDocument is the seed text and the markers found in it.
type RootDocument struct {
	Name       string
	Text       string
	References []scanner.Reference
}

// NewRootDocument scans text for markers.
func NewRootDocument(name, text string) *RootDocument {
	return &RootDocument{Name: name, Text: text, References: scanner.Scan(text)}
}

// Splice returns the root text with every occurrence of each marker in
// replacements substituted by its value. Markers not present in the map are
// left verbatim. The text is walked once; inserted text is never rescanned,
// so markers inside a replacement survive unexpanded.
func (d *RootDocument) Splice(replacements map[string]string) string {
	var edits []edit
	for _, ref := range d.References {
		text, ok := replacements[ref.Marker]
		if !ok {
			continue
		}
		for _, span := range ref.Spans {
			edits = append(edits, edit{span: span, text: text})
		}
	}
	return applyEdits(d.Text, edits)
}

type edit struct {
	span scanner.Span
	text string
	// line removes the whole line when the span is its only content.
	line bool
}

func applyEdits(text string, edits []edit) string {
	if len(edits) == 0 {
		return text
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].span.Offset < edits[j].span.Offset })

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, e := range edits {
		start, end := e.span.Offset, e.span.End
		if e.line && e.text == "" {
			start, end = lineBounds(text, start, end)
		}
		if start < pos {
			// overlaps a previous whole-line removal
			continue
		}
		b.WriteString(text[pos:start])
		b.WriteString(e.text)
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// lineBounds widens [start,end) to the full line, newline included, when
// nothing but blanks surround the span. Otherwise it returns the span.
func lineBounds(text string, start, end int) (int, int) {
	ls := strings.LastIndexByte(text[:start], '\n') + 1
	le := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		le = end + i + 1
	}
	if strings.TrimSpace(text[ls:start]) != "" || strings.TrimSpace(text[end:le]) != "" {
		return start, end
	}
	return ls, le
}
