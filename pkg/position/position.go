// Package position tracks byte-offset spans in template source and resolves
// them to line/column places for diagnostics.
package position

import "fmt"

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Text returns the source text the span covers.
func (s Span) Text(src string) string {
	if s.Start < 0 || s.End > len(src) || s.Empty() {
		return ""
	}
	return src[s.Start:s.End]
}

// Place is a 1-based line and column pair.
type Place struct {
	Line   int
	Column int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is the line/column form of a span.
type Range struct {
	Start Place
	End   Place
}

// PlaceAt resolves a byte offset against the source text. Columns count
// bytes, not runes, which matches what editors expect for ASCII-heavy
// template source.
func PlaceAt(src string, offset int) Place {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	line := 1
	lastNL := -1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			lastNL = i
		}
	}
	return Place{Line: line, Column: offset - lastNL}
}

// Resolve maps the span to its line/column range in src.
func (s Span) Resolve(src string) Range {
	return Range{
		Start: PlaceAt(src, s.Start),
		End:   PlaceAt(src, s.End),
	}
}
