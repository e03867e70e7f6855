package reader

import (
	"fmt"
	"strings"

	"leaf/layout"
	"leaf/render"
)

// draw repaints the visible page plus the status line.
func (r *Reader) draw() error {
	canvas, err := render.NewCanvasFromTerminal()
	if err != nil {
		return err
	}
	if err := r.paintPage(canvas); err != nil {
		return err
	}
	return canvas.RenderTo(r.out)
}

// paintPage draws the visible page and status line onto the canvas without
// rendering it, so overlays can dim the page and draw on top.
func (r *Reader) paintPage(canvas *render.Canvas) error {
	st, err := r.current()
	if err != nil {
		return err
	}

	width := r.clampWidth()
	margin := (canvas.Width() - width) / 2
	if margin < 0 {
		margin = 0
	}
	height := canvas.Height() - 1

	if max := len(st.Lines) - 1; r.row > max {
		r.row = max
	}
	if r.row < 0 {
		r.row = 0
	}

	for y := 0; y < height; y++ {
		idx := r.row + y
		if idx >= len(st.Lines) {
			break
		}
		canvas.WriteString(margin, y, st.Lines[idx], render.Style{})
	}

	applyFormatting(canvas, st.Formatting, r.row, height, margin)
	r.highlightMatches(canvas, st, height, margin)

	canvas.WriteString(0, height, r.statusLine(st, canvas.Width()), render.Style{Dim: true})
	return nil
}

// applyFormatting restyles the cells covered by inline styles on the
// visible rows. Layout columns are rune positions, which match canvas
// columns one to one for the text widths the wrapper produces.
func applyFormatting(canvas *render.Canvas, styles []layout.InlineStyle, top, height, margin int) {
	for _, is := range styles {
		y := is.Row - top
		if y < 0 || y >= height {
			continue
		}
		style := render.Style{
			Bold:   is.Attr&layout.AttrBold != 0,
			Italic: is.Attr&layout.AttrItalic != 0,
		}
		for i := 0; i < is.NLetters; i++ {
			x := margin + is.Col + i
			cell := canvas.Get(x, y)
			merged := cell.Style
			merged.Bold = merged.Bold || style.Bold
			merged.Italic = merged.Italic || style.Italic
			canvas.SetStyle(x, y, merged)
		}
	}
}

// highlightMatches reverses the cells of search hits on screen.
func (r *Reader) highlightMatches(canvas *render.Canvas, st *layout.TextStructure, height, margin int) {
	if r.searchRe == nil {
		return
	}
	for _, row := range r.matches {
		y := row - r.row
		if y < 0 || y >= height {
			continue
		}
		for _, loc := range r.searchRe.FindAllStringIndex(st.Lines[row], -1) {
			// Convert byte offsets to rune columns.
			start := len([]rune(st.Lines[row][:loc[0]]))
			end := len([]rune(st.Lines[row][:loc[1]]))
			for x := start; x < end; x++ {
				cell := canvas.Get(margin+x, y)
				style := cell.Style
				style.Reverse = true
				canvas.SetStyle(margin+x, y, style)
			}
		}
	}
}

func (r *Reader) statusLine(st *layout.TextStructure, width int) string {
	if r.status != "" {
		line := r.status
		r.status = ""
		return render.Truncate(line, width)
	}

	title := r.book.Metadata().Title
	if title == "" {
		title = r.book.Path()
	}

	pos := fmt.Sprintf("%d/%d", r.chapter+1, len(r.book.Contents()))
	var parts []string
	parts = append(parts, render.Truncate(title, width/2), pos)

	if r.cfg.Display.ShowProgress {
		frac := fraction(r.row, len(st.Lines))
		if r.seamless {
			chRow := r.row - r.offsets[r.chapter]
			frac = fraction(chRow, r.offsets[r.chapter+1]-r.offsets[r.chapter])
		}
		if pct := progress(r.letters, r.chapter, frac); pct >= 0 {
			parts = append(parts, fmt.Sprintf("%.0f%%", pct*100))
		}
	}
	if r.tts.Running() {
		parts = append(parts, "[tts]")
	}

	return render.Truncate(strings.Join(parts, "  "), width)
}
