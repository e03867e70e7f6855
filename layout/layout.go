// Package layout turns a chapter's HTML into width-constrained lines of
// plain text, together with the metadata the reader needs to display them:
// inline bold/italic spans remapped through word-wrapping, image placeholder
// positions, and section-anchor line numbers for table-of-contents jumps.
package layout

import "errors"

// ErrInvalidWidth is returned when a layout is requested for a width no text
// could fit in. Width zero is not a layout request at all; callers wanting
// raw paragraphs use Document.Paragraphs instead.
var ErrInvalidWidth = errors.New("layout: text width must be at least 1")

// Attr is a terminal style attribute carried by an InlineStyle.
type Attr uint8

const (
	// AttrBold marks bold text and heading/image placeholder rows.
	AttrBold Attr = 1 << iota
	// AttrItalic marks italic text. Renderers without italic support are
	// expected to substitute underline.
	AttrItalic
)

// CharPos is the position of a character within an ordered sequence of text
// lines. Columns count runes, not bytes.
type CharPos struct {
	Row int
	Col int
}

// TextMark is an inclusive interval of marked text, possibly spanning
// multiple rows. A mark opened by a tag that is never closed has a nil End
// and is invalid; such marks are dropped during span conversion rather than
// surfaced as errors, since broken markup is routine in ebooks.
type TextMark struct {
	Start CharPos
	End   *CharPos
}

// IsValid reports whether the mark is terminated and its interval is
// non-degenerate.
func (m TextMark) IsValid() bool {
	if m.End == nil {
		return false
	}
	if m.Start.Row == m.End.Row {
		return m.Start.Col <= m.End.Col
	}
	return m.Start.Row < m.End.Row
}

// TextSpan is a single-row slice of a TextMark: a starting position and a
// letter count on that row.
type TextSpan struct {
	Start    CharPos
	NLetters int
}

// InlineStyle is one formatting instruction in final line coordinates.
// Overlapping instructions are legal and applied additively by the renderer.
type InlineStyle struct {
	Row      int
	Col      int
	NLetters int
	Attr     Attr
}

// TextStructure describes how one chapter is displayed at a given width.
// It is built once per (chapter, width) pair and discarded on resize.
type TextStructure struct {
	Lines       []string
	ImageMaps   map[int]string // line index -> image path inside the container
	SectionRows map[string]int // anchor id -> line index
	Formatting  []InlineStyle
}

// Merge combines structures of adjacent chapters into one continuous line
// space. The parts must have been built with increasing starting-line
// offsets so that their line numbers, section rows and formatting rows are
// already globally unique.
func Merge(parts ...*TextStructure) *TextStructure {
	merged := &TextStructure{
		ImageMaps:   make(map[int]string),
		SectionRows: make(map[string]int),
	}
	for _, part := range parts {
		merged.Lines = append(merged.Lines, part.Lines...)
		for row, path := range part.ImageMaps {
			merged.ImageMaps[row] = path
		}
		for id, row := range part.SectionRows {
			merged.SectionRows[id] = row
		}
		merged.Formatting = append(merged.Formatting, part.Formatting...)
	}
	return merged
}
