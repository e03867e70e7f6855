package reader

import (
	"fmt"
	"unicode"

	"go.uber.org/zap"

	"leaf/ebook"
	"leaf/layout"
)

type structKey struct {
	index int
	width int
}

// document parses chapter markup once and memoizes it. The section IDs
// requested are the anchors the TOC points at within that chapter, so a
// jump can land mid-chapter.
func (r *Reader) document(index int) (*layout.Document, error) {
	if doc, ok := r.docs[index]; ok {
		return doc, nil
	}
	src, err := r.book.RawText(index)
	if err != nil {
		return nil, fmt.Errorf("reader: loading chapter %d: %w", index, err)
	}
	doc := layout.ParseHTML(src, r.sectionIDs(index))
	r.docs[index] = doc
	return doc, nil
}

func (r *Reader) sectionIDs(index int) []string {
	var ids []string
	for _, entry := range r.book.TOC() {
		if entry.ContentIndex == index && entry.Section != "" {
			ids = append(ids, entry.Section)
		}
	}
	return ids
}

// structure lays a chapter out at the given width, memoized per
// chapter/width pair. Re-laying out on every scroll would make resize and
// seamless mode unusable on large books.
func (r *Reader) structure(index, width int) (*layout.TextStructure, error) {
	key := structKey{index, width}
	if st, ok := r.cache[key]; ok {
		return st, nil
	}
	doc, err := r.document(index)
	if err != nil {
		return nil, err
	}
	st, err := doc.StructuredText(width, 0)
	if err != nil {
		return nil, err
	}
	r.cache[key] = st
	return st, nil
}

// seamlessStructure merges every chapter into one continuous structure.
// offsets[i] is the first row of chapter i in the merged text; the final
// element is the total row count.
func (r *Reader) seamlessStructure(width int) (*layout.TextStructure, []int, error) {
	parts := make([]*layout.TextStructure, 0, len(r.book.Contents()))
	offsets := make([]int, 0, len(r.book.Contents())+1)

	row := 0
	for i := range r.book.Contents() {
		offsets = append(offsets, row)
		doc, err := r.document(i)
		if err != nil {
			return nil, nil, err
		}
		st, err := doc.StructuredText(width, row)
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, st)
		row += len(st.Lines)
	}
	offsets = append(offsets, row)

	return layout.Merge(parts...), offsets, nil
}

// countLetters totals the non-space runes of every chapter. It runs in a
// goroutine at startup; results feed the progress display and arrive on
// r.letterc exactly once.
func (r *Reader) countLetters() {
	counts := make([]int, len(r.book.Contents()))
	for i := range counts {
		src, err := r.book.RawText(i)
		if err != nil {
			r.log.Warn("counting letters", zap.Int("chapter", i), zap.Error(err))
			continue
		}
		doc := layout.ParseHTML(src, nil)
		for _, para := range doc.Paragraphs() {
			for _, c := range para {
				if !unicode.IsSpace(c) {
					counts[i]++
				}
			}
		}
	}
	r.letterc <- counts
}

// progress estimates how far into the book a position is, weighting
// chapters by their letter counts. Returns a value in [0, 1], or -1 when
// the counts are not in yet.
func progress(counts []int, chapter int, fraction float64) float64 {
	if len(counts) == 0 {
		return -1
	}
	total := 0
	before := 0
	for i, n := range counts {
		total += n
		if i < chapter {
			before += n
		}
	}
	if total == 0 {
		return 0
	}
	read := float64(before)
	if chapter < len(counts) {
		read += fraction * float64(counts[chapter])
	}
	return read / float64(total)
}

// fraction is the relative position of row within a structure of n lines.
func fraction(row, n int) float64 {
	if n <= 0 {
		return 0
	}
	if row < 0 {
		row = 0
	}
	if row >= n {
		row = n - 1
	}
	return float64(row) / float64(n)
}

// rowForFraction inverts fraction for a structure of n lines.
func rowForFraction(pctg float64, n int) int {
	if n <= 0 || pctg <= 0 {
		return 0
	}
	row := int(pctg * float64(n))
	if row >= n {
		row = n - 1
	}
	return row
}

// chapterAt maps a merged-text row back to its chapter using the seamless
// offsets table.
func chapterAt(offsets []int, row int) int {
	for i := len(offsets) - 2; i >= 0; i-- {
		if row >= offsets[i] {
			return i
		}
	}
	return 0
}

// tocJumpRow finds the row a TOC entry lands on inside its chapter: the
// anchored section row when known, the chapter top otherwise.
func tocJumpRow(st *layout.TextStructure, entry ebook.TocEntry) int {
	if entry.Section != "" {
		if row, ok := st.SectionRows[entry.Section]; ok {
			return row
		}
	}
	return 0
}
