package layout

import "strings"

// chapterSuffix is appended, centered, as the last line of every chapter.
const chapterSuffix = "***"

// StructuredText lays the document out at the given width. startingLine
// offsets every produced row number so that structures for consecutive
// chapters can be merged into one continuous line space.
//
// Role priority per paragraph: heading, indent, bullet, preformatted, image
// placeholder, then plain wrapping. Headings and image placeholders are
// centered rather than wrapped and their rows marked bold; inline marks are
// re-projected from paragraph coordinates onto the wrapped lines.
func (d *Document) StructuredText(textwidth, startingLine int) (*TextStructure, error) {
	if textwidth < 1 {
		return nil, ErrInvalidWidth
	}

	var text []string
	var formatting []InlineStyle
	images := make(map[int]string)
	sections := make(map[string]int)

	italicGroups := groupSpansByRow(markToSpans(d.text, d.italicMarks))
	boldGroups := groupSpansByRow(markToSpans(d.text, d.boldMarks))

	for n, para := range d.text {
		startLine := len(text)

		if id, ok := d.sections[n]; ok {
			sections[id] = startingLine + startLine
		}

		switch {
		case d.idHead[n]:
			text = append(text, center(para, textwidth), "")
			for i := startLine; i < len(text); i++ {
				if letters := runeLen(text[i]); letters > 0 {
					formatting = append(formatting, InlineStyle{
						Row:      startingLine + i,
						NLetters: letters,
						Attr:     AttrBold,
					})
				}
			}

		case d.idInde[n]:
			for _, line := range wrapText(para, textwidth-3) {
				text = append(text, "   "+line)
			}
			text = append(text, "")

		case d.idBull[n]:
			for i, line := range wrapText(para, textwidth-3) {
				if i == 0 {
					text = append(text, " - "+line)
				} else {
					text = append(text, "   "+line)
				}
			}
			text = append(text, "")

		case d.idPref[n]:
			// authored line breaks survive; each authored line wraps on
			// its own
			for _, src := range strings.Split(para, "\n") {
				for _, line := range wrapText(src, textwidth-6) {
					text = append(text, "   "+line)
				}
			}
			text = append(text, "")

		case d.idImgs[n]:
			images[startingLine+len(text)] = d.images[n]
			placeholder := center(para, textwidth)
			text = append(text, placeholder)
			formatting = append(formatting, InlineStyle{
				Row:      startingLine + len(text) - 1,
				NLetters: runeLen(placeholder),
				Attr:     AttrBold,
			})
			text = append(text, "")

		default:
			text = append(text, wrapText(para, textwidth)...)
			text = append(text, "")
		}

		wrapped := text[startLine:]

		leftAdjustment := 0
		if d.idBull[n] || d.idInde[n] {
			leftAdjustment = 3
		}

		for _, span := range italicGroups[n] {
			for _, s := range adjustWrappedSpans(wrapped, span, startLine, leftAdjustment) {
				formatting = append(formatting, InlineStyle{
					Row:      startingLine + s.Start.Row,
					Col:      s.Start.Col,
					NLetters: s.NLetters,
					Attr:     AttrItalic,
				})
			}
		}
		for _, span := range boldGroups[n] {
			for _, s := range adjustWrappedSpans(wrapped, span, startLine, leftAdjustment) {
				formatting = append(formatting, InlineStyle{
					Row:      startingLine + s.Start.Row,
					Col:      s.Start.Col,
					NLetters: s.NLetters,
					Attr:     AttrBold,
				})
			}
		}
	}

	text = append(text, center(chapterSuffix, textwidth))

	return &TextStructure{
		Lines:       text,
		ImageMaps:   images,
		SectionRows: sections,
		Formatting:  formatting,
	}, nil
}
