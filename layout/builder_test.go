package layout

import (
	"reflect"
	"strings"
	"testing"
)

func mustStructure(t *testing.T, src string, sectionIDs []string, width, startingLine int) *TextStructure {
	t.Helper()
	ts, err := ParseHTML(src, sectionIDs).StructuredText(width, startingLine)
	if err != nil {
		t.Fatalf("StructuredText: %v", err)
	}
	return ts
}

func TestHeadingCentering(t *testing.T) {
	ts := mustStructure(t, "<h1>Chapter One</h1>", nil, 40, 0)

	if len(ts.Lines) == 0 {
		t.Fatal("no lines produced")
	}
	first := ts.Lines[0]
	if runeLen(first) != 40 {
		t.Errorf("heading line length = %d, expected 40", runeLen(first))
	}
	if strings.TrimSpace(first) != "Chapter One" {
		t.Errorf("heading text = %q", first)
	}
	left := len(first) - len(strings.TrimLeft(first, " "))
	right := len(first) - len(strings.TrimRight(first, " "))
	if right-left > 1 || left-right > 1 {
		t.Errorf("heading not centered: %d left, %d right", left, right)
	}
	if ts.Lines[1] != "" {
		t.Errorf("expected blank line after heading, got %q", ts.Lines[1])
	}

	var bold []InlineStyle
	for _, f := range ts.Formatting {
		if f.Attr == AttrBold {
			bold = append(bold, f)
		}
	}
	expected := []InlineStyle{{Row: 0, Col: 0, NLetters: 40, Attr: AttrBold}}
	if !reflect.DeepEqual(bold, expected) {
		t.Errorf("bold formatting = %v, expected %v", bold, expected)
	}
}

func TestEndToEnd(t *testing.T) {
	src := "<h1>Title</h1><p>Hello world this is a test paragraph that should wrap.</p>"
	ts := mustStructure(t, src, nil, 20, 0)

	expected := []string{
		center("Title", 20),
		"",
		"",
		"Hello world this is",
		"a test paragraph",
		"that should wrap.",
		"",
		"",
		center("***", 20),
	}
	if !reflect.DeepEqual(ts.Lines, expected) {
		t.Errorf("lines mismatch\ngot:      %q\nexpected: %q", ts.Lines, expected)
	}

	for i, line := range ts.Lines {
		if runeLen(line) > 20 {
			t.Errorf("line %d exceeds width: %q", i, line)
		}
	}

	boldCount := 0
	for _, f := range ts.Formatting {
		if f.Attr != AttrBold {
			t.Errorf("unexpected non-bold formatting: %v", f)
		}
		if f.Row != 0 {
			t.Errorf("bold entry on row %d, expected 0", f.Row)
		}
		boldCount++
	}
	if boldCount != 1 {
		t.Errorf("got %d bold entries, expected exactly 1", boldCount)
	}
}

func TestSectionAnchorRemapping(t *testing.T) {
	src := `<p>one</p><p>two</p><p id="ch2">three</p>`

	ts := mustStructure(t, src, []string{"ch2"}, 20, 0)
	// "one" and "two" each produce one wrapped line plus a blank
	if got := ts.SectionRows["ch2"]; got != 4 {
		t.Errorf(`SectionRows["ch2"] = %d, expected 4`, got)
	}

	ts = mustStructure(t, src, []string{"ch2"}, 20, 100)
	if got := ts.SectionRows["ch2"]; got != 104 {
		t.Errorf(`SectionRows["ch2"] with offset = %d, expected 104`, got)
	}

	// ids nobody asked about are not collected
	ts = mustStructure(t, src, nil, 20, 0)
	if len(ts.SectionRows) != 0 {
		t.Errorf("unexpected section rows: %v", ts.SectionRows)
	}
}

func TestImageMap(t *testing.T) {
	ts := mustStructure(t, `<img src="pics/pic%201.png"/>`, nil, 20, 0)

	path, ok := ts.ImageMaps[1]
	if !ok {
		t.Fatalf("no image at line 1: %v", ts.ImageMaps)
	}
	if path != "pics/pic 1.png" {
		t.Errorf("image path = %q, expected %q", path, "pics/pic 1.png")
	}
	if strings.TrimSpace(ts.Lines[1]) != imagePlaceholder {
		t.Errorf("line 1 = %q, expected centered placeholder", ts.Lines[1])
	}

	foundBold := false
	for _, f := range ts.Formatting {
		if f.Row == 1 && f.Attr == AttrBold {
			foundBold = true
		}
	}
	if !foundBold {
		t.Error("placeholder line not marked bold")
	}
}

func TestItalicSurvivesWrapping(t *testing.T) {
	ts := mustStructure(t, "<p>Hello <i>world this</i> is</p>", nil, 11, 0)

	// The wrapped paragraph gets its trailing blank line, and the trailing
	// empty paragraph left by </p> yields a second one before the marker.
	expectedLines := []string{"Hello world", "this is", "", "", center("***", 11)}
	if !reflect.DeepEqual(ts.Lines, expectedLines) {
		t.Fatalf("lines mismatch\ngot:      %q\nexpected: %q", ts.Lines, expectedLines)
	}

	expected := []InlineStyle{
		{Row: 0, Col: 6, NLetters: 5, Attr: AttrItalic},
		{Row: 1, Col: 0, NLetters: 5, Attr: AttrItalic},
	}
	if !reflect.DeepEqual(ts.Formatting, expected) {
		t.Errorf("formatting = %v, expected %v", ts.Formatting, expected)
	}
}

func TestUnterminatedMarkNeverFormats(t *testing.T) {
	// missing </i>: the open mark must be dropped, not propagated
	ts := mustStructure(t, "<p>plain <i>leaking italic</p>", nil, 30, 0)

	for _, f := range ts.Formatting {
		if f.Attr == AttrItalic {
			t.Errorf("unterminated italic leaked into formatting: %v", f)
		}
	}
}

func TestBulletAndIndentPrefixes(t *testing.T) {
	src := "<ul><li>first item that is long enough to wrap</li></ul><blockquote>quoted text</blockquote>"
	ts := mustStructure(t, src, nil, 20, 0)

	var bullet, continuation, quoted bool
	for _, line := range ts.Lines {
		if strings.HasPrefix(line, " - ") {
			bullet = true
		}
		if strings.HasPrefix(line, "   ") && strings.TrimSpace(line) != "" && strings.TrimSpace(line) != "***" {
			continuation = true
		}
		if strings.Contains(line, "quoted text") && strings.HasPrefix(line, "   ") {
			quoted = true
		}
		if runeLen(line) > 20 {
			t.Errorf("line exceeds width: %q", line)
		}
	}
	if !bullet {
		t.Error("no bullet prefix found")
	}
	if !continuation {
		t.Error("no continuation indent found")
	}
	if !quoted {
		t.Error("blockquote not indented")
	}
}

func TestPreformattedKeepsAuthoredBreaks(t *testing.T) {
	ts := mustStructure(t, "<pre>first line\nsecond line</pre>", nil, 40, 0)

	var got []string
	for _, line := range ts.Lines {
		if strings.TrimSpace(line) != "" && strings.TrimSpace(line) != "***" {
			got = append(got, line)
		}
	}
	expected := []string{"   first line", "   second line"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("pre lines = %q, expected %q", got, expected)
	}
}

func TestHiddenContentDiscarded(t *testing.T) {
	ts := mustStructure(t, "<head><style>body{}</style></head><p>visible</p><script>var x=1;</script>", nil, 40, 0)

	joined := strings.Join(ts.Lines, "\n")
	if strings.Contains(joined, "body{}") || strings.Contains(joined, "var x=1;") {
		t.Errorf("hidden content leaked: %q", joined)
	}
	if !strings.Contains(joined, "visible") {
		t.Errorf("visible content missing: %q", joined)
	}
}

func TestSupSubMarkers(t *testing.T) {
	paras := ParseHTML("<p>x<sup>2</sup> and H<sub>2</sub>O</p>", nil).Paragraphs()

	joined := strings.Join(paras, "")
	if !strings.Contains(joined, "x^{2}") {
		t.Errorf("superscript marker missing: %q", joined)
	}
	if !strings.Contains(joined, "H_{2}O") {
		t.Errorf("subscript marker missing: %q", joined)
	}
}

func TestRawModeIdempotent(t *testing.T) {
	src := "<h1>Title</h1><p>Some <b>bold</b> text.</p><ul><li>item</li></ul>"

	first := ParseHTML(src, nil).Paragraphs()
	second := ParseHTML(src, nil).Paragraphs()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("raw parses differ:\n%q\n%q", first, second)
	}
}

func TestEmptyInput(t *testing.T) {
	ts := mustStructure(t, "", nil, 20, 0)

	expected := []string{"", center("***", 20)}
	if !reflect.DeepEqual(ts.Lines, expected) {
		t.Errorf("lines = %q, expected %q", ts.Lines, expected)
	}
}

func TestInvalidWidth(t *testing.T) {
	doc := ParseHTML("<p>text</p>", nil)

	for _, width := range []int{0, -1, -80} {
		if _, err := doc.StructuredText(width, 0); err != ErrInvalidWidth {
			t.Errorf("width %d: err = %v, expected ErrInvalidWidth", width, err)
		}
	}
}

func TestMerge(t *testing.T) {
	doc1 := ParseHTML(`<p id="a">first chapter</p>`, []string{"a"})
	ts1, err := doc1.StructuredText(20, 0)
	if err != nil {
		t.Fatal(err)
	}

	doc2 := ParseHTML(`<p id="b">second chapter</p>`, []string{"b"})
	ts2, err := doc2.StructuredText(20, len(ts1.Lines))
	if err != nil {
		t.Fatal(err)
	}

	merged := Merge(ts1, ts2)

	if len(merged.Lines) != len(ts1.Lines)+len(ts2.Lines) {
		t.Errorf("merged line count = %d", len(merged.Lines))
	}
	if merged.SectionRows["a"] != 0 {
		t.Errorf(`SectionRows["a"] = %d`, merged.SectionRows["a"])
	}
	if got := merged.SectionRows["b"]; got != len(ts1.Lines) {
		t.Errorf(`SectionRows["b"] = %d, expected %d`, got, len(ts1.Lines))
	}
	if merged.Lines[merged.SectionRows["b"]] != "second chapter" {
		t.Errorf("section b points at %q", merged.Lines[merged.SectionRows["b"]])
	}
}
