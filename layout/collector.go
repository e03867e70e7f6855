package layout

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const imagePlaceholder = "[IMAGE]"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Document is the parsed, pre-layout form of one chapter: logical paragraphs
// plus everything needed to lay them out at any width. A Document is built
// by one ParseHTML call, never shared between parses, and is immutable once
// returned.
type Document struct {
	// text holds the completed paragraphs. While parsing, the paragraph
	// being collected lives in cur and is flushed onto text at every block
	// boundary; after ParseHTML returns, text ends with the final, possibly
	// empty, paragraph.
	text []string
	cur  strings.Builder

	idHead map[int]bool
	idInde map[int]bool
	idBull map[int]bool
	idPref map[int]bool
	idImgs map[int]bool

	images   map[int]string // paragraph index -> image path
	sections map[int]string // paragraph index -> anchor id

	italicMarks []TextMark
	boldMarks   []TextMark

	// parse-scoped state, meaningless after ParseHTML returns
	sectIDs  map[string]bool
	inHead   bool
	inInde   bool
	inBull   bool
	inPref   bool
	inHidden bool
}

// ParseHTML linearizes an HTML or XHTML chapter into a Document. Malformed
// markup never fails: unknown tags are ignored, unterminated inline tags
// leave invalid marks that are dropped later, and tokenizer errors simply
// end the stream. sectionIDs lists the anchor ids worth recording, normally
// the fragments referenced by the table of contents.
func ParseHTML(src string, sectionIDs []string) *Document {
	d := &Document{
		idHead:   make(map[int]bool),
		idInde:   make(map[int]bool),
		idBull:   make(map[int]bool),
		idPref:   make(map[int]bool),
		idImgs:   make(map[int]bool),
		images:   make(map[int]string),
		sections: make(map[int]string),
		sectIDs:  make(map[string]bool, len(sectionIDs)),
	}
	for _, id := range sectionIDs {
		d.sectIDs[id] = true
	}

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or broken markup; either way we render what we got
			d.flush()
			return d
		case html.StartTagToken:
			t := z.Token()
			d.handleStart(t.Data, t.Attr)
		case html.SelfClosingTagToken:
			t := z.Token()
			d.handleSelfClosing(t.Data, t.Attr)
		case html.EndTagToken:
			t := z.Token()
			d.handleEnd(t.Data)
		case html.TextToken:
			d.handleData(z.Token().Data)
		}
	}
}

// cursor is the position right after the last character collected so far.
// The open paragraph's row is the index it will take once flushed.
func (d *Document) cursor() CharPos {
	return CharPos{Row: len(d.text), Col: runeLen(d.cur.String())}
}

// flush completes the open paragraph, pushing it onto the output sequence
// and starting a new empty one.
func (d *Document) flush() {
	d.text = append(d.text, d.cur.String())
	d.cur.Reset()
}

func (d *Document) handleStart(name string, attrs []html.Attribute) {
	switch classify(name) {
	case tagHeading:
		d.inHead = true
	case tagIndent:
		d.inInde = true
	case tagPref:
		d.inPref = true
	case tagBullet:
		d.inBull = true
	case tagHidden:
		d.inHidden = true
	case tagSup:
		d.cur.WriteString("^{")
	case tagSub:
		d.cur.WriteString("_{")
	case tagBreak:
		d.flush()
	case tagImage:
		// HTML img tags arrive as plain start tags; the matching end tag
		// (if any, XHTML) closes the block with an empty paragraph.
		d.recordImage(name, attrs)
	case tagItalic:
		if n := len(d.italicMarks); n == 0 || d.italicMarks[n-1].IsValid() {
			d.italicMarks = append(d.italicMarks, TextMark{Start: d.cursor()})
		}
	case tagBold:
		if n := len(d.boldMarks); n == 0 || d.boldMarks[n-1].IsValid() {
			d.boldMarks = append(d.boldMarks, TextMark{Start: d.cursor()})
		}
	}
	d.recordSection(attrs)
}

func (d *Document) handleSelfClosing(name string, attrs []html.Attribute) {
	switch classify(name) {
	case tagBreak:
		d.flush()
	case tagImage:
		if d.recordImage(name, attrs) {
			d.flush()
		}
	}
	// mobi-unpacked chapters often carry anchors on self-closing tags
	d.recordSection(attrs)
}

func (d *Document) handleEnd(name string) {
	switch classify(name) {
	case tagHeading:
		d.flush()
		d.flush()
		d.inHead = false
	case tagParagraph:
		d.flush()
	case tagHidden:
		d.inHidden = false
	case tagIndent:
		d.closeBlock()
		d.inInde = false
	case tagPref:
		d.closeBlock()
		d.inPref = false
	case tagBullet:
		d.closeBlock()
		d.inBull = false
	case tagSup, tagSub:
		d.cur.WriteString("}")
	case tagImage:
		d.flush()
	case tagItalic:
		if n := len(d.italicMarks); n > 0 {
			pos := d.cursor()
			d.italicMarks[n-1].End = &pos
		}
	case tagBold:
		if n := len(d.boldMarks); n > 0 {
			pos := d.cursor()
			d.boldMarks[n-1].End = &pos
		}
	}
}

func (d *Document) closeBlock() {
	if d.cur.Len() != 0 {
		d.flush()
	}
}

// recordImage completes the open paragraph and opens a placeholder paragraph
// for the image, so the placeholder always occupies a row of its own start.
func (d *Document) recordImage(name string, attrs []html.Attribute) bool {
	for _, a := range attrs {
		if (name == "img" && a.Key == "src") || (name == "image" && strings.HasSuffix(a.Key, "href")) {
			d.flush()
			idx := len(d.text)
			d.idImgs[idx] = true
			d.images[idx] = unquote(a.Val)
			d.cur.WriteString(imagePlaceholder)
			return true
		}
	}
	return false
}

func (d *Document) recordSection(attrs []html.Attribute) {
	if len(d.sectIDs) == 0 {
		return
	}
	for _, a := range attrs {
		if a.Key == "id" && d.sectIDs[a.Val] {
			d.sections[len(d.text)] = a.Val
		}
	}
}

func (d *Document) handleData(raw string) {
	if raw == "" || d.inHidden {
		return
	}

	tmp := raw
	if d.cur.Len() == 0 {
		tmp = strings.TrimLeftFunc(tmp, unicode.IsSpace)
	}
	// tokenizer text is already entity-decoded; preformatted blocks keep
	// their whitespace verbatim, everything else collapses runs
	if !d.inPref {
		tmp = whitespaceRun.ReplaceAllString(tmp, " ")
	}
	d.cur.WriteString(tmp)

	row := len(d.text)
	switch {
	case d.inHead:
		d.idHead[row] = true
	case d.inBull:
		d.idBull[row] = true
	case d.inInde:
		d.idInde[row] = true
	case d.inPref:
		d.idPref[row] = true
	}
}

// Paragraphs returns the raw paragraph buffer: the no-layout mode used for
// dumping and letter counting. The slice is a copy; the Document stays
// untouched by whatever the caller does with it.
func (d *Document) Paragraphs() []string {
	out := make([]string, len(d.text))
	copy(out, d.text)
	return out
}

func unquote(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
