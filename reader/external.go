package reader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"leaf/dict"
	"leaf/render"
)

// openVisibleImage finds the first image placeholder on screen and hands
// the extracted image to the configured viewer.
func (r *Reader) openVisibleImage() error {
	viewer := r.cfg.External.ImageViewer
	if viewer == "" {
		r.status = "no image viewer configured"
		return nil
	}
	st, err := r.current()
	if err != nil {
		return err
	}

	src := ""
	chapter := r.chapter
	for y := r.row; y < r.row+r.pageHeight() && y < len(st.Lines); y++ {
		if s, ok := st.ImageMaps[y]; ok {
			src = s
			if r.seamless {
				chapter = chapterAt(r.offsets, y)
			}
			break
		}
	}
	if src == "" {
		r.status = "no image on this page"
		return nil
	}

	name, data, err := r.book.Image(chapter, src)
	if err != nil {
		return err
	}
	path := filepath.Join(os.TempDir(), "leaf-"+filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	cmd := exec.Command(viewer, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", viewer, err)
	}
	r.log.Info("opened image", zap.String("src", src), zap.String("path", path))
	go cmd.Wait()
	return nil
}

// defineWord prompts for a word and shows its definition, from the
// configured dictionary command or the online dictionary when none is set.
func (r *Reader) defineWord() error {
	word, ok := r.prompt("define: ")
	if !ok || strings.TrimSpace(word) == "" {
		return nil
	}
	word = strings.TrimSpace(word)

	width, _, terr := render.TerminalSize()
	if terr != nil {
		width = 80
	}

	if command := r.cfg.External.DictCommand; command != "" {
		out, err := exec.Command(command, word).CombinedOutput()
		if err != nil && len(out) == 0 {
			return fmt.Errorf("running %s: %w", command, err)
		}
		r.textOverlay(word, wrapLines(string(out), width-8))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	entries, err := dict.NewClient().Define(ctx, word)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		r.status = fmt.Sprintf("no definition for %q", word)
		return nil
	}
	var lines []string
	for _, line := range dict.Format(entries) {
		lines = append(lines, wrapLines(line, width-8)...)
	}
	r.textOverlay(word, lines)
	return nil
}

// wrapLines greedily wraps plain text for an overlay, preserving authored
// line breaks.
func wrapLines(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(raw)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				lines = append(lines, line)
				line = w
			}
		}
		lines = append(lines, line)
	}
	return lines
}
