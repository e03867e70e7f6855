// Package ebook opens ebook containers and hands their chapters to the
// layout engine as plain HTML strings. Supported formats: EPUB (2 and 3),
// FictionBook 2, and PalmDoc-compressed MOBI/AZW.
package ebook

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Metadata is the book description assembled from the container's own
// metadata block. Absent fields stay empty.
type Metadata struct {
	Title       string
	Creator     string
	Description string
	Publisher   string
	Date        string
	Language    string
	Format      string
	Identifier  string
	Source      string
}

// Fields returns the populated metadata entries as label/value pairs, in
// display order.
func (m Metadata) Fields() [][2]string {
	all := [][2]string{
		{"Title", m.Title},
		{"Creator", m.Creator},
		{"Description", m.Description},
		{"Publisher", m.Publisher},
		{"Date", m.Date},
		{"Language", m.Language},
		{"Format", m.Format},
		{"Identifier", m.Identifier},
		{"Source", m.Source},
	}
	var fields [][2]string
	for _, f := range all {
		if f[1] != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// TocEntry is one table-of-contents item: a label, the chapter it belongs
// to, and optionally the anchor id of a subsection within that chapter.
type TocEntry struct {
	Label        string
	ContentIndex int
	Section      string
}

// Ebook is one opened container. Implementations hold the container open
// until Close and are not safe for concurrent use.
type Ebook interface {
	// Path is the filesystem path the book was opened from.
	Path() string
	Metadata() Metadata
	// Contents lists the spine documents in reading order.
	Contents() []string
	TOC() []TocEntry
	// RawText returns chapter index i as an HTML string ready for layout.
	RawText(i int) (string, error)
	// Image resolves src (as it appeared in chapter i's markup) and
	// returns a display name plus the raw image bytes.
	Image(i int, src string) (string, []byte, error)
	Close() error
}

// Open picks a container implementation by extension, falling back to
// content sniffing for files with unhelpful names.
func Open(path string) (Ebook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return OpenEpub(path)
	case ".fb2":
		return OpenFictionBook(path)
	case ".mobi", ".prc", ".azw", ".azw3":
		return OpenMobi(path)
	}

	kind, err := filetype.MatchFile(path)
	if err != nil {
		return nil, fmt.Errorf("ebook: detecting %s: %w", path, err)
	}
	switch kind.Extension {
	case "epub", "zip":
		return OpenEpub(path)
	case "mobi":
		return OpenMobi(path)
	case "xml":
		return OpenFictionBook(path)
	}
	return nil, fmt.Errorf("ebook: unsupported format: %s", path)
}

// resolveHref resolves a relative href against the directory of the
// document it appeared in, using slash-separated container paths.
func resolveHref(docPath, href string) string {
	dir := filepath.ToSlash(filepath.Dir(docPath))
	if dir == "." {
		return filepath.ToSlash(filepath.Clean(href))
	}
	return filepath.ToSlash(filepath.Clean(dir + "/" + href))
}
