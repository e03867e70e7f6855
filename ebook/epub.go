package ebook

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

const ncxMediaType = "application/x-dtbncx+xml"

// Epub reads EPUB 2 and 3 containers: a zip archive whose OPF package
// document names the spine order and (via NCX or the EPUB3 nav document)
// the table of contents.
type Epub struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File

	meta     Metadata
	contents []string // zip paths of spine documents, reading order
	relative []string // the same, relative to the OPF directory
	toc      []TocEntry
}

// OpenEpub opens and indexes an EPUB container. Books whose OPF cannot be
// located or parsed are rejected; individually broken TOC entries are
// skipped, not fatal.
func OpenEpub(path string) (*Epub, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epub: opening %s: %w", path, err)
	}

	e := &Epub{
		path:  path,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		e.files[f.Name] = f
	}

	if err := e.initialize(); err != nil {
		zr.Close()
		return nil, err
	}
	return e, nil
}

func (e *Epub) initialize() error {
	container, err := e.parseXML("META-INF/container.xml")
	if err != nil {
		return err
	}
	rootfile := findFirst(container.Root(), "rootfile")
	if rootfile == nil {
		return fmt.Errorf("epub: %s: no rootfile in container.xml", e.path)
	}
	opfPath := rootfile.SelectAttrValue("full-path", "")
	if opfPath == "" {
		return fmt.Errorf("epub: %s: rootfile has no full-path", e.path)
	}

	opf, err := e.parseXML(opfPath)
	if err != nil {
		return err
	}
	pkg := opf.Root()
	version := pkg.SelectAttrValue("version", "2.0")

	e.meta = epubMetadata(pkg)

	manifest := make(map[string]string) // id -> href
	var tocHref string
	for _, item := range findAll(pkg, "item") {
		id := item.SelectAttrValue("id", "")
		href := item.SelectAttrValue("href", "")
		mediaType := item.SelectAttrValue("media-type", "")
		properties := item.SelectAttrValue("properties", "")

		switch {
		case strings.HasPrefix(version, "3") && strings.Contains(properties, "nav"):
			tocHref = href
		case mediaType == ncxMediaType:
			if tocHref == "" {
				tocHref = href
			}
		default:
			manifest[id] = href
		}
	}

	opfDir := ""
	if i := strings.LastIndex(opfPath, "/"); i >= 0 {
		opfDir = opfPath[:i+1]
	}

	for _, itemref := range findAll(pkg, "itemref") {
		href, ok := manifest[itemref.SelectAttrValue("idref", "")]
		if !ok {
			continue
		}
		rel := unquoteHref(href)
		e.relative = append(e.relative, rel)
		e.contents = append(e.contents, resolveHref(opfPath, rel))
	}
	if len(e.contents) == 0 {
		return fmt.Errorf("epub: %s: empty spine", e.path)
	}

	if tocHref != "" {
		if tocDoc, err := e.parseXML(opfDir + unquoteHref(tocHref)); err == nil {
			if strings.HasPrefix(version, "3") {
				e.toc = epub3TOC(tocDoc.Root(), e.relative)
			} else {
				e.toc = ncxTOC(tocDoc.Root(), e.relative)
			}
		}
	}
	return nil
}

func epubMetadata(pkg *etree.Element) Metadata {
	pick := func(name string) string {
		if el := findFirst(pkg, name); el != nil {
			return strings.TrimSpace(el.Text())
		}
		return ""
	}
	return Metadata{
		Title:       pick("title"),
		Creator:     pick("creator"),
		Description: pick("description"),
		Publisher:   pick("publisher"),
		Date:        pick("date"),
		Language:    pick("language"),
		Format:      pick("format"),
		Identifier:  pick("identifier"),
		Source:      pick("source"),
	}
}

// ncxTOC flattens an EPUB2 NCX navMap. Entries whose target is not in the
// spine are skipped.
func ncxTOC(root *etree.Element, contents []string) []TocEntry {
	var entries []TocEntry
	for _, np := range findAll(root, "navPoint") {
		content := findFirst(np, "content")
		if content == nil {
			continue
		}
		src := content.SelectAttrValue("src", "")

		label := ""
		if text := findFirst(np, "text"); text != nil {
			label = strings.TrimSpace(text.Text())
		}
		if entry, ok := tocEntry(label, src, contents); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// epub3TOC reads anchors out of the nav document's toc nav element, or out
// of the whole document when the epub:type attribute is missing.
func epub3TOC(root *etree.Element, contents []string) []TocEntry {
	scope := root
	for _, nav := range findAll(root, "nav") {
		for _, attr := range nav.Attr {
			if attr.Key == "type" && attr.Value == "toc" {
				scope = nav
			}
		}
	}

	var entries []TocEntry
	for _, a := range findAll(scope, "a") {
		label := strings.TrimSpace(elementText(a))
		if label == "" {
			continue
		}
		if entry, ok := tocEntry(label, a.SelectAttrValue("href", ""), contents); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func tocEntry(label, src string, contents []string) (TocEntry, bool) {
	if label == "" || src == "" {
		return TocEntry{}, false
	}
	target, section, _ := strings.Cut(src, "#")
	target = unquoteHref(target)
	for i, c := range contents {
		if c == target {
			return TocEntry{Label: label, ContentIndex: i, Section: section}, true
		}
	}
	return TocEntry{}, false
}

func (e *Epub) Path() string       { return e.path }
func (e *Epub) Metadata() Metadata { return e.meta }
func (e *Epub) Contents() []string { return e.contents }
func (e *Epub) TOC() []TocEntry    { return e.toc }

func (e *Epub) RawText(i int) (string, error) {
	if i < 0 || i >= len(e.contents) {
		return "", fmt.Errorf("epub: chapter %d out of range", i)
	}
	data, err := e.readFile(e.contents[i])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Epub) Image(i int, src string) (string, []byte, error) {
	if i < 0 || i >= len(e.contents) {
		return "", nil, fmt.Errorf("epub: chapter %d out of range", i)
	}
	path := resolveHref(e.contents[i], src)
	data, err := e.readFile(path)
	if err != nil {
		return "", nil, err
	}
	return path, data, nil
}

func (e *Epub) Close() error { return e.zr.Close() }

func (e *Epub) readFile(name string) ([]byte, error) {
	f, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("epub: %s: no such entry: %s", e.path, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: opening %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("epub: reading %s: %w", name, err)
	}
	return data, nil
}

func (e *Epub) parseXML(name string) (*etree.Document, error) {
	data, err := e.readFile(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("epub: parsing %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("epub: parsing %s: empty document", name)
	}
	return doc, nil
}

// findAll collects descendants by local tag name, ignoring namespace
// prefixes; epub files in the wild disagree about those.
func findAll(el *etree.Element, tag string) []*etree.Element {
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			if child.Tag == tag {
				found = append(found, child)
			}
			walk(child)
		}
	}
	walk(el)
	return found
}

func findFirst(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if all := findAll(el, tag); len(all) > 0 {
		return all[0]
	}
	return nil
}

// elementText concatenates all character data under el, in document order.
func elementText(el *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch c := tok.(type) {
			case *etree.CharData:
				sb.WriteString(c.Data)
			case *etree.Element:
				walk(c)
			}
		}
	}
	walk(el)
	return sb.String()
}

func unquoteHref(href string) string {
	if u, err := url.PathUnescape(href); err == nil {
		return u
	}
	return href
}
