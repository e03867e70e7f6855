package reader

import (
	"fmt"
	"strings"

	"leaf/render"
	"leaf/state"
)

// readKeyBlocking waits for the next keypress, riding out read timeouts.
func (r *Reader) readKeyBlocking() byte {
	for {
		if b, ok := r.readKey(); ok {
			return b
		}
	}
}

// prompt asks for a line of input on the status row. Enter accepts, Escape
// cancels, backspace edits.
func (r *Reader) prompt(label string) (string, bool) {
	var input []rune
	for {
		canvas, err := render.NewCanvasFromTerminal()
		if err != nil {
			return "", false
		}
		if err := r.draw(); err != nil {
			return "", false
		}
		y := canvas.Height() - 1
		r.out.WriteString(fmt.Sprintf("\033[%d;1H%s%s%s", y+1, render.ClearLine, label, string(input)))

		b := r.readKeyBlocking()
		switch b {
		case '\r', '\n':
			return string(input), true
		case 0x1B, 0x03: // Escape, Ctrl-C
			return "", false
		case 0x7F, 0x08: // Backspace
			if len(input) > 0 {
				input = input[:len(input)-1]
			}
		default:
			if b >= 0x20 {
				input = append(input, rune(b))
			}
		}
	}
}

// clearBoxInterior blanks the inside of the standard overlay box so the
// dimmed page does not show through between entries.
func clearBoxInterior(canvas *render.Canvas, boxW, boxH int) {
	blank := strings.Repeat(" ", boxW-2)
	for y := 1; y < boxH-1; y++ {
		canvas.WriteString(3, y, blank, render.Style{})
	}
}

// listOverlay shows a scrollable selection list in a box and returns the
// chosen index, or ok=false on cancel.
func (r *Reader) listOverlay(title string, items []string, selected int) (int, bool) {
	if len(items) == 0 {
		r.status = "nothing to show"
		return 0, false
	}
	if selected < 0 || selected >= len(items) {
		selected = 0
	}
	top := 0

	for {
		canvas, err := render.NewCanvasFromTerminal()
		if err != nil {
			return 0, false
		}
		if err := r.paintPage(canvas); err != nil {
			return 0, false
		}
		canvas.DimAll()

		boxW := canvas.Width() - 4
		boxH := canvas.Height() - 2
		if boxW < 10 || boxH < 4 {
			return 0, false
		}
		visible := boxH - 2

		if selected < top {
			top = selected
		}
		if selected >= top+visible {
			top = selected - visible + 1
		}

		canvas.DrawBoxWithTitle(2, 0, boxW, boxH, title, render.RoundedBox, render.Style{}, render.Style{Bold: true})
		clearBoxInterior(canvas, boxW, boxH)
		for i := 0; i < visible && top+i < len(items); i++ {
			style := render.Style{}
			if top+i == selected {
				style.Reverse = true
			}
			line := render.Truncate(items[top+i], boxW-4)
			canvas.WriteString(4, 1+i, render.AlignText(line, boxW-4, render.AlignLeft), style)
		}
		if err := canvas.RenderTo(r.out); err != nil {
			return 0, false
		}

		switch b := r.readKeyBlocking(); b {
		case 'j', 0x0E: // Ctrl-N
			if selected < len(items)-1 {
				selected++
			}
		case 'k', 0x10: // Ctrl-P
			if selected > 0 {
				selected--
			}
		case 'g':
			selected = 0
		case 'G':
			selected = len(items) - 1
		case '\r', '\n':
			return selected, true
		case 'q', 0x1B, 0x03:
			return 0, false
		}
	}
}

// textOverlay shows read-only text in a pager box until dismissed.
func (r *Reader) textOverlay(title string, lines []string) {
	top := 0
	for {
		canvas, err := render.NewCanvasFromTerminal()
		if err != nil {
			return
		}
		if err := r.paintPage(canvas); err != nil {
			return
		}
		canvas.DimAll()

		boxW := canvas.Width() - 4
		boxH := canvas.Height() - 2
		if boxW < 10 || boxH < 4 {
			return
		}
		visible := boxH - 2

		canvas.DrawBoxWithTitle(2, 0, boxW, boxH, title, render.SingleBox, render.Style{}, render.Style{Bold: true})
		clearBoxInterior(canvas, boxW, boxH)
		for i := 0; i < visible && top+i < len(lines); i++ {
			canvas.WriteString(4, 1+i, render.Truncate(lines[top+i], boxW-4), render.Style{})
		}
		if err := canvas.RenderTo(r.out); err != nil {
			return
		}

		switch r.readKeyBlocking() {
		case 'j':
			if top < len(lines)-visible {
				top++
			}
		case 'k':
			if top > 0 {
				top--
			}
		case ' ':
			top += visible
			if top > len(lines)-visible {
				top = len(lines) - visible
			}
			if top < 0 {
				top = 0
			}
		default:
			return
		}
	}
}

// showTOC lets the user jump to a table-of-contents entry.
func (r *Reader) showTOC() error {
	toc := r.book.TOC()
	if len(toc) == 0 {
		r.status = "no table of contents"
		return nil
	}

	// Preselect the entry the current position is in.
	current := 0
	for i, entry := range toc {
		if entry.ContentIndex <= r.chapter {
			current = i
		}
	}

	labels := make([]string, len(toc))
	for i, entry := range toc {
		labels[i] = entry.Label
	}
	choice, ok := r.listOverlay("Contents", labels, current)
	if !ok {
		return nil
	}

	entry := toc[choice]
	st, err := r.structure(entry.ContentIndex, r.clampWidth())
	if err != nil {
		return err
	}
	row := tocJumpRow(st, entry)
	if r.seamless {
		merged, err := r.current()
		if err != nil {
			return err
		}
		// Section rows in the merged text already carry the chapter offset.
		if entry.Section != "" {
			if mrow, ok := merged.SectionRows[entry.Section]; ok {
				r.chapter = entry.ContentIndex
				r.row = mrow
				return nil
			}
		}
	}
	return r.gotoChapter(entry.ContentIndex, row)
}

// showMetadata displays the book's metadata fields.
func (r *Reader) showMetadata() error {
	fields := r.book.Metadata().Fields()
	if len(fields) == 0 {
		r.status = "no metadata"
		return nil
	}
	var lines []string
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%-12s %s", f[0]+":", f[1]))
		lines = append(lines, "")
	}
	r.textOverlay("Metadata", lines)
	return nil
}

func (r *Reader) showHelp() error {
	k := &r.cfg.Keybindings
	rows := [][2]string{
		{k.ScrollDown + "/" + k.ScrollUp, "scroll"},
		{strings.TrimSpace(k.PageDown) + "/" + k.PageUp, "page down/up"},
		{k.HalfPageDown + "/" + k.HalfPageUp, "half page down/up"},
		{k.NextChapter + "/" + k.PrevChapter, "next/previous chapter"},
		{k.ChapterTop + "/" + k.ChapterBottom, "chapter top/bottom"},
		{k.TableOfContents, "table of contents"},
		{k.Metadata, "metadata"},
		{k.Find + " " + k.FindNext + "/" + k.FindPrev, "search, next/previous match"},
		{k.OpenImage, "open visible image"},
		{k.DefineWord, "define word"},
		{k.AddBookmark + "/" + k.ShowBookmarks, "add/show bookmarks"},
		{k.ToggleTTS, "toggle text-to-speech"},
		{k.WidenText + "/" + k.NarrowText, "adjust text width"},
		{k.Quit, "quit"},
	}
	var lines []string
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("  %-8s %s", row[0], row[1]))
	}
	r.textOverlay("Help", lines)
	return nil
}

// addBookmark prompts for a name and stores the current position.
func (r *Reader) addBookmark() error {
	name, ok := r.prompt("bookmark name: ")
	if !ok || strings.TrimSpace(name) == "" {
		return nil
	}
	st, err := r.current()
	if err != nil {
		return err
	}
	mark := state.ReadingState{
		ContentIndex: r.chapter,
		TextWidth:    r.width,
		Row:          r.row,
		RelPctg:      fraction(r.row, len(st.Lines)),
	}
	if r.seamless {
		mark.Row = r.row - r.offsets[r.chapter]
		mark.RelPctg = fraction(mark.Row, r.offsets[r.chapter+1]-r.offsets[r.chapter])
	}
	if err := r.store.AddBookmark(r.book.Path(), strings.TrimSpace(name), mark); err != nil {
		return err
	}
	r.status = "bookmark saved"
	return nil
}

// showBookmarks lets the user jump to a stored bookmark.
func (r *Reader) showBookmarks() error {
	marks, err := r.store.Bookmarks(r.book.Path())
	if err != nil {
		return err
	}
	if len(marks) == 0 {
		r.status = "no bookmarks"
		return nil
	}

	labels := make([]string, len(marks))
	for i, m := range marks {
		labels[i] = fmt.Sprintf("%s  (chapter %d)", m.Name, m.State.ContentIndex+1)
	}
	choice, ok := r.listOverlay("Bookmarks", labels, 0)
	if !ok {
		return nil
	}

	mark := marks[choice].State
	if mark.ContentIndex >= len(r.book.Contents()) {
		r.status = "bookmark points past the end of this book"
		return nil
	}
	st, err := r.structure(mark.ContentIndex, r.clampWidth())
	if err != nil {
		return err
	}
	row := mark.Row
	if mark.TextWidth != r.clampWidth() {
		row = rowForFraction(mark.RelPctg, len(st.Lines))
	}
	return r.gotoChapter(mark.ContentIndex, row)
}
