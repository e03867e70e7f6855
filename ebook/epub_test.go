package ebook

import (
	"archive/zip"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeZip(t *testing.T, name string, entries [][2]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := zw.Create(entry[0])
		if err != nil {
			t.Fatalf("adding %s: %v", entry[0], err)
		}
		if _, err := w.Write([]byte(entry[1])); err != nil {
			t.Fatalf("writing %s: %v", entry[0], err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
	return path
}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func epub2Fixture(t *testing.T) string {
	t.Helper()
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
    <dc:title>A Study in Layout</dc:title>
    <dc:creator>J. Doe</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="pic" href="images/pic.png" media-type="image/png"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`
	ncx := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1"><navLabel><text>One</text></navLabel><content src="ch1.xhtml"/></navPoint>
    <navPoint id="n2"><navLabel><text>Two</text></navLabel><content src="ch2.xhtml#part2"/></navPoint>
    <navPoint id="n3"><navLabel><text>Missing</text></navLabel><content src="nowhere.xhtml"/></navPoint>
  </navMap>
</ncx>`
	return writeZip(t, "book.epub", [][2]string{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", opf},
		{"OEBPS/toc.ncx", ncx},
		{"OEBPS/ch1.xhtml", "<html><body><p>first chapter</p></body></html>"},
		{"OEBPS/ch2.xhtml", "<html><body><p>second chapter</p></body></html>"},
		{"OEBPS/images/pic.png", "not really a png"},
	})
}

func TestEpub2(t *testing.T) {
	book, err := OpenEpub(epub2Fixture(t))
	if err != nil {
		t.Fatalf("OpenEpub: %v", err)
	}
	defer book.Close()

	t.Run("spine order", func(t *testing.T) {
		expected := []string{"OEBPS/ch1.xhtml", "OEBPS/ch2.xhtml"}
		if got := book.Contents(); !reflect.DeepEqual(got, expected) {
			t.Errorf("got %v, expected %v", got, expected)
		}
	})

	t.Run("metadata", func(t *testing.T) {
		meta := book.Metadata()
		if meta.Title != "A Study in Layout" {
			t.Errorf("got title %q, expected %q", meta.Title, "A Study in Layout")
		}
		if meta.Creator != "J. Doe" {
			t.Errorf("got creator %q, expected %q", meta.Creator, "J. Doe")
		}
		if meta.Language != "en" {
			t.Errorf("got language %q, expected %q", meta.Language, "en")
		}
	})

	t.Run("toc skips entries outside spine", func(t *testing.T) {
		expected := []TocEntry{
			{Label: "One", ContentIndex: 0},
			{Label: "Two", ContentIndex: 1, Section: "part2"},
		}
		if got := book.TOC(); !reflect.DeepEqual(got, expected) {
			t.Errorf("got %v, expected %v", got, expected)
		}
	})

	t.Run("raw text", func(t *testing.T) {
		text, err := book.RawText(1)
		if err != nil {
			t.Fatalf("RawText: %v", err)
		}
		if !strings.Contains(text, "second chapter") {
			t.Errorf("got %q, expected it to contain %q", text, "second chapter")
		}
		if _, err := book.RawText(2); err == nil {
			t.Error("expected out-of-range error")
		}
	})

	t.Run("image resolves against chapter dir", func(t *testing.T) {
		name, data, err := book.Image(0, "images/pic.png")
		if err != nil {
			t.Fatalf("Image: %v", err)
		}
		if name != "OEBPS/images/pic.png" {
			t.Errorf("got name %q, expected %q", name, "OEBPS/images/pic.png")
		}
		if string(data) != "not really a png" {
			t.Errorf("got data %q", data)
		}
	})
}

func TestEpub3Nav(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="3.0">
  <metadata><dc:title>Third Edition</dc:title></metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" properties="nav" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	nav := `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
  <body>
    <nav epub:type="toc">
      <ol><li><a href="ch1.xhtml#intro">Introduction</a></li></ol>
    </nav>
  </body>
</html>`
	path := writeZip(t, "book3.epub", [][2]string{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", opf},
		{"OEBPS/nav.xhtml", nav},
		{"OEBPS/ch1.xhtml", "<html><body><p>hi</p></body></html>"},
	})

	book, err := OpenEpub(path)
	if err != nil {
		t.Fatalf("OpenEpub: %v", err)
	}
	defer book.Close()

	expected := []TocEntry{{Label: "Introduction", ContentIndex: 0, Section: "intro"}}
	if got := book.TOC(); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestEpubRejectsBrokenContainers(t *testing.T) {
	t.Run("no container.xml", func(t *testing.T) {
		path := writeZip(t, "bad.epub", [][2]string{{"mimetype", "application/epub+zip"}})
		if _, err := OpenEpub(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty spine", func(t *testing.T) {
		opf := `<package xmlns="http://www.idpf.org/2007/opf" version="2.0"><manifest/><spine/></package>`
		path := writeZip(t, "bad.epub", [][2]string{
			{"META-INF/container.xml", containerXML},
			{"OEBPS/content.opf", opf},
		})
		if _, err := OpenEpub(path); err == nil {
			t.Error("expected error")
		}
	})
}

func TestOpenDispatch(t *testing.T) {
	book, err := Open(epub2Fixture(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	if book.Metadata().Title != "A Study in Layout" {
		t.Errorf("got title %q", book.Metadata().Title)
	}

	missing := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(missing, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(missing); err == nil {
		t.Error("expected unsupported-format error")
	}
}

func TestResolveHref(t *testing.T) {
	tests := []struct {
		doc, href, expected string
	}{
		{"OEBPS/ch1.xhtml", "images/pic.png", "OEBPS/images/pic.png"},
		{"OEBPS/text/ch1.xhtml", "../images/pic.png", "OEBPS/images/pic.png"},
		{"ch1.xhtml", "pic.png", "pic.png"},
	}
	for _, tt := range tests {
		if got := resolveHref(tt.doc, tt.href); got != tt.expected {
			t.Errorf("resolveHref(%q, %q) = %q, expected %q", tt.doc, tt.href, got, tt.expected)
		}
	}
}
