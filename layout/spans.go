package layout

// markToSpans decomposes marks over the paragraph buffer into per-row spans.
// A single-row mark yields one span; a multi-row mark yields one span to the
// end of its first row, one full-row span per fully covered row, and one
// span from column zero on its last row. Invalid marks (unterminated tags)
// are dropped. Duplicate spans are kept.
func markToSpans(text []string, marks []TextMark) []TextSpan {
	var spans []TextSpan
	for _, mark := range marks {
		if !mark.IsValid() {
			continue
		}
		if mark.Start.Row == mark.End.Row {
			spans = append(spans, TextSpan{
				Start:    mark.Start,
				NLetters: mark.End.Col - mark.Start.Col,
			})
			continue
		}
		spans = append(spans, TextSpan{
			Start:    mark.Start,
			NLetters: runeLen(text[mark.Start.Row]) - mark.Start.Col,
		})
		for row := mark.Start.Row + 1; row < mark.End.Row; row++ {
			spans = append(spans, TextSpan{
				Start:    CharPos{Row: row},
				NLetters: runeLen(text[row]),
			})
		}
		spans = append(spans, TextSpan{
			Start:    CharPos{Row: mark.End.Row},
			NLetters: mark.End.Col,
		})
	}
	return spans
}

// adjustWrappedSpans re-projects a span given in unwrapped-paragraph columns
// onto the lines that paragraph wrapped into. lineAdjustment is the output
// line index where the paragraph's block starts; leftAdjustment compensates
// for prefix characters added by bullet and indent blocks.
//
// Each wrapped line accounts for len(line)+1 runes of the original, the +1
// being the whitespace dropped at the wrap point. Not exact for hard-broken
// long words, which is acceptable at terminal widths.
func adjustWrappedSpans(wrapped []string, span TextSpan, lineAdjustment, leftAdjustment int) []TextSpan {
	startCol := span.Start.Col
	endCol := startCol + span.NLetters

	prev := 0 // rune count consumed before the current line
	var spans []TextSpan
	for n, line := range wrapped {
		lineLen := runeLen(line) + 1
		current := prev + lineLen

		startHere := prev <= startCol && startCol < current
		endHere := prev <= endCol && endCol < current

		switch {
		// span fully inside this line
		case startHere && endHere:
			spans = append(spans, TextSpan{
				Start:    CharPos{Row: lineAdjustment + n, Col: startCol - prev + leftAdjustment},
				NLetters: span.NLetters,
			})

		// span starts here and continues beyond
		case startHere:
			spans = append(spans, TextSpan{
				Start:    CharPos{Row: lineAdjustment + n, Col: startCol - prev + leftAdjustment},
				NLetters: current - startCol - 1, // -1: dropped whitespace
			})

		// span started before and ends here
		case endHere:
			spans = append(spans, TextSpan{
				Start:    CharPos{Row: lineAdjustment + n, Col: leftAdjustment},
				NLetters: endCol - prev + 1, // +1: dropped whitespace
			})

		// span covers the whole line
		case startCol <= prev && prev < endCol && startCol <= current && current < endCol:
			spans = append(spans, TextSpan{
				Start:    CharPos{Row: lineAdjustment + n, Col: leftAdjustment},
				NLetters: lineLen - 1,
			})

		case prev > endCol:
			return spans
		}

		prev = current
	}
	return spans
}

// groupSpansByRow groups spans by their starting row, preserving insertion
// order within each group. Duplicates are deliberately kept: overlapping
// marks must each produce their own formatting instruction.
func groupSpansByRow(spans []TextSpan) map[int][]TextSpan {
	groups := make(map[int][]TextSpan)
	for _, span := range spans {
		groups[span.Start.Row] = append(groups[span.Start.Row], span)
	}
	return groups
}
