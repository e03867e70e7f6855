package ebook

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"
)

// FictionBook reads FB2 files: a single XML document whose body sections
// are the chapters. Sections are re-serialized as HTML for the layout
// engine, with FB2-specific tags renamed to their closest HTML equivalents.
type FictionBook struct {
	path     string
	root     *etree.Element
	sections []*etree.Element
	meta     Metadata
	toc      []TocEntry
}

// fb2ToHTML maps FB2 block and inline tags onto tags the layout collector
// understands. Unlisted tags pass through unchanged and are ignored there.
var fb2ToHTML = map[string]string{
	"emphasis":    "i",
	"strong":      "b",
	"title":       "h2",
	"subtitle":    "h3",
	"epigraph":    "blockquote",
	"cite":        "blockquote",
	"text-author": "p",
	"v":           "p",
	"empty-line":  "br",
	"section":     "div",
}

// OpenFictionBook parses an FB2 file. Non-UTF8 encodings declared in the
// XML prolog (windows-1251 is endemic) are decoded via the html charset
// index.
func OpenFictionBook(path string) (*FictionBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fb2: reading %s: %w", path, err)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("fb2: parsing %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "FictionBook" {
		return nil, fmt.Errorf("fb2: %s: not a FictionBook document", path)
	}

	fb := &FictionBook{path: path, root: root}
	fb.initialize()
	if len(fb.sections) == 0 {
		return nil, fmt.Errorf("fb2: %s: no body sections", path)
	}
	return fb, nil
}

func (fb *FictionBook) initialize() {
	for _, body := range fb.root.ChildElements() {
		if body.Tag != "body" {
			continue
		}
		for _, section := range body.ChildElements() {
			fb.sections = append(fb.sections, section)
		}
	}

	for n, section := range fb.sections {
		if title := findFirst(section, "title"); title != nil {
			label := strings.Join(strings.Fields(elementText(title)), " ")
			if label != "" {
				fb.toc = append(fb.toc, TocEntry{Label: label, ContentIndex: n})
			}
		}
	}

	fb.meta = fb2Metadata(fb.root)
}

func fb2Metadata(root *etree.Element) Metadata {
	pick := func(scope *etree.Element, name string) string {
		if el := findFirst(scope, name); el != nil {
			return strings.TrimSpace(el.Text())
		}
		return ""
	}

	scope := root
	if info := findFirst(root, "title-info"); info != nil {
		scope = info
	}

	author := pick(scope, "first-name")
	if last := pick(scope, "last-name"); last != "" {
		if author != "" {
			author += " " + last
		} else {
			author = last
		}
	}

	return Metadata{
		Title:      pick(scope, "book-title"),
		Creator:    author,
		Date:       pick(scope, "date"),
		Language:   pick(scope, "lang"),
		Identifier: pick(root, "id"),
		Format:     "FictionBook",
	}
}

func (fb *FictionBook) Path() string       { return fb.path }
func (fb *FictionBook) Metadata() Metadata { return fb.meta }
func (fb *FictionBook) TOC() []TocEntry    { return fb.toc }

func (fb *FictionBook) Contents() []string {
	names := make([]string, len(fb.sections))
	for i := range fb.sections {
		names[i] = fmt.Sprintf("section %d", i+1)
	}
	return names
}

// RawText serializes section i back to markup, renaming FB2 tags to HTML on
// a copy so the parsed tree stays untouched.
func (fb *FictionBook) RawText(i int) (string, error) {
	if i < 0 || i >= len(fb.sections) {
		return "", fmt.Errorf("fb2: section %d out of range", i)
	}

	section := fb.sections[i].Copy()
	renameToHTML(section)

	doc := etree.NewDocument()
	doc.SetRoot(section)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("fb2: serializing section %d: %w", i, err)
	}
	return out, nil
}

func renameToHTML(el *etree.Element) {
	el.Space = ""
	if mapped, ok := fb2ToHTML[el.Tag]; ok {
		el.Tag = mapped
	}
	for _, child := range el.ChildElements() {
		renameToHTML(child)
	}
}

// Image looks up an embedded binary element by its #id reference and
// decodes its base64 payload.
func (fb *FictionBook) Image(_ int, src string) (string, []byte, error) {
	id := strings.TrimPrefix(src, "#")

	for _, binary := range findAll(fb.root, "binary") {
		if binary.SelectAttrValue("id", "") != id {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(elementText(binary)))
		if err != nil {
			return "", nil, fmt.Errorf("fb2: decoding image %s: %w", id, err)
		}
		name := id
		if ct := binary.SelectAttrValue("content-type", ""); strings.Contains(ct, "/") {
			name = id + "." + ct[strings.Index(ct, "/")+1:]
		}
		return name, data, nil
	}
	return "", nil, fmt.Errorf("fb2: no image with id %q", id)
}

func (fb *FictionBook) Close() error { return nil }
