package layout

import (
	"strings"
	"unicode/utf8"
)

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// wrapText greedily wraps s into lines of at most width runes, splitting on
// whitespace and hard-breaking words longer than a full line. Blank input
// produces no lines. Column arithmetic elsewhere relies on each wrapped line
// consuming len(line)+1 runes of the original paragraph, the +1 being the
// whitespace dropped at the wrap point.
func wrapText(s string, width int) []string {
	if width < 1 {
		return nil
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var current strings.Builder
	currentLen := 0

	for _, word := range words {
		wordLen := runeLen(word)

		if currentLen == 0 {
			if wordLen > width {
				lines = append(lines, breakWord(word, width)...)
				continue
			}
			current.WriteString(word)
			currentLen = wordLen
		} else if currentLen+1+wordLen <= width {
			current.WriteByte(' ')
			current.WriteString(word)
			currentLen += 1 + wordLen
		} else {
			lines = append(lines, current.String())
			current.Reset()
			if wordLen > width {
				lines = append(lines, breakWord(word, width)...)
				currentLen = 0
			} else {
				current.WriteString(word)
				currentLen = wordLen
			}
		}
	}

	if currentLen > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

func breakWord(word string, width int) []string {
	var chunks []string
	runes := []rune(word)
	for len(runes) > width {
		chunks = append(chunks, string(runes[:width]))
		runes = runes[width:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// center pads s on both sides to width runes. Text at or beyond the target
// width is returned unchanged, never truncated or wrapped; headings are
// assumed short and an oversized one is allowed to overflow.
func center(s string, width int) string {
	n := runeLen(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
