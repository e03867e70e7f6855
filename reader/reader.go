// Package reader runs the interactive reading session: it owns the
// terminal, lays chapters out through the layout engine, and persists the
// position between runs.
package reader

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"leaf/config"
	"leaf/ebook"
	"leaf/layout"
	"leaf/render"
	"leaf/state"
)

const minTextWidth = 22

// Reader is one reading session over one opened book.
type Reader struct {
	book  ebook.Ebook
	store *state.Store
	cfg   *config.Config
	log   *zap.Logger

	in   *os.File
	out  *os.File
	term *render.Terminal

	width    int // text column width currently in effect
	chapter  int
	row      int // top visible row within the current structure
	seamless bool

	docs  map[int]*layout.Document
	cache map[structKey]*layout.TextStructure

	// Seamless mode state, rebuilt on width change.
	merged  *layout.TextStructure
	offsets []int

	letterc chan []int
	letters []int

	searchRe *regexp.Regexp
	matches  []int
	matchIdx int

	tts *TTS

	status string // one-shot message for the status line
	quit   bool
}

// New prepares a session. The terminal is not touched until Run.
func New(book ebook.Ebook, store *state.Store, cfg *config.Config, log *zap.Logger) (*Reader, error) {
	term, err := render.NewTerminal(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reader: terminal setup: %w", err)
	}

	r := &Reader{
		book:     book,
		store:    store,
		cfg:      cfg,
		log:      log,
		in:       os.Stdin,
		out:      os.Stdout,
		term:     term,
		width:    cfg.Display.TextWidth,
		seamless: cfg.Display.Seamless,
		docs:     make(map[int]*layout.Document),
		cache:    make(map[structKey]*layout.TextStructure),
		letterc:  make(chan []int, 1),
		tts:      NewTTS(cfg.External.TTSCommand, log),
	}

	if st, found, err := store.GetReadingState(book.Path()); err != nil {
		log.Warn("loading reading state", zap.Error(err))
	} else if found {
		r.chapter = st.ContentIndex
		if r.chapter >= len(book.Contents()) {
			r.chapter = 0
		}
		r.restoreRow(st)
	}
	return r, nil
}

// restoreRow recovers the saved row, rescaling through the saved fraction
// when the text width changed since the last session.
func (r *Reader) restoreRow(st state.ReadingState) {
	if st.TextWidth == r.width {
		r.row = st.Row
		return
	}
	if cur, err := r.structure(r.chapter, r.clampWidth()); err == nil {
		r.row = rowForFraction(st.RelPctg, len(cur.Lines))
	}
}

// Run takes over the terminal until the user quits. The position is saved
// on the way out even when the loop fails.
func (r *Reader) Run() (err error) {
	if err := r.term.EnterRawMode(); err != nil {
		return fmt.Errorf("reader: entering raw mode: %w", err)
	}
	render.EnterAltScreen(r.out)
	defer func() {
		r.tts.Stop()
		render.ExitAltScreen(r.out)
		err = multierr.Append(err, r.term.RestoreMode())
		err = multierr.Append(err, r.saveState())
	}()

	go r.countLetters()

	for !r.quit {
		if err := r.draw(); err != nil {
			return err
		}
		b, ok := r.readKey()
		if !ok {
			continue
		}
		if err := r.handleKey(b); err != nil {
			r.log.Warn("handling key", zap.Error(err))
			r.status = err.Error()
		}
	}
	return nil
}

// readKey reads one byte; raw mode uses a read timeout, so a zero-length
// read just means redraw and poll again (this is also how terminal resizes
// get noticed).
func (r *Reader) readKey() (byte, bool) {
	select {
	case counts := <-r.letterc:
		r.letters = counts
	default:
	}

	buf := make([]byte, 1)
	n, err := r.in.Read(buf)
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}

func (r *Reader) handleKey(b byte) error {
	k := &r.cfg.Keybindings
	switch {
	case config.MatchSingle(b, k.Quit), b == 0x03: // Ctrl-C
		r.quit = true
	case config.MatchSingle(b, k.ScrollDown):
		return r.scroll(1)
	case config.MatchSingle(b, k.ScrollUp):
		return r.scroll(-1)
	case config.MatchSingle(b, k.PageDown):
		return r.scroll(r.pageHeight())
	case config.MatchSingle(b, k.PageUp):
		return r.scroll(-r.pageHeight())
	case config.MatchSingle(b, k.HalfPageDown):
		return r.scroll(r.pageHeight() / 2)
	case config.MatchSingle(b, k.HalfPageUp):
		return r.scroll(-r.pageHeight() / 2)
	case config.MatchSingle(b, k.ChapterTop):
		return r.gotoChapterEdge(false)
	case config.MatchSingle(b, k.ChapterBottom):
		return r.gotoChapterEdge(true)
	case config.MatchSingle(b, k.NextChapter):
		return r.gotoChapter(r.chapter+1, 0)
	case config.MatchSingle(b, k.PrevChapter):
		return r.gotoChapter(r.chapter-1, 0)
	case config.MatchSingle(b, k.TableOfContents):
		return r.showTOC()
	case config.MatchSingle(b, k.Metadata):
		return r.showMetadata()
	case config.MatchSingle(b, k.Help):
		return r.showHelp()
	case config.MatchSingle(b, k.Find):
		return r.startSearch()
	case config.MatchSingle(b, k.FindNext):
		return r.jumpMatch(1)
	case config.MatchSingle(b, k.FindPrev):
		return r.jumpMatch(-1)
	case config.MatchSingle(b, k.OpenImage):
		return r.openVisibleImage()
	case config.MatchSingle(b, k.DefineWord):
		return r.defineWord()
	case config.MatchSingle(b, k.AddBookmark):
		return r.addBookmark()
	case config.MatchSingle(b, k.ShowBookmarks):
		return r.showBookmarks()
	case config.MatchSingle(b, k.ToggleTTS):
		return r.toggleTTS()
	case config.MatchSingle(b, k.WidenText):
		return r.adjustWidth(2)
	case config.MatchSingle(b, k.NarrowText):
		return r.adjustWidth(-2)
	}
	return nil
}

// current returns the structure being read: the merged text in seamless
// mode, the current chapter otherwise.
func (r *Reader) current() (*layout.TextStructure, error) {
	width := r.clampWidth()
	if !r.seamless {
		return r.structure(r.chapter, width)
	}
	if r.merged == nil {
		merged, offsets, err := r.seamlessStructure(width)
		if err != nil {
			return nil, err
		}
		r.merged, r.offsets = merged, offsets
	}
	return r.merged, nil
}

// clampWidth keeps the text column inside the terminal.
func (r *Reader) clampWidth() int {
	width := r.width
	if tw, _, err := render.TerminalSize(); err == nil && tw > 0 && width > tw {
		width = tw
	}
	if width < minTextWidth {
		width = minTextWidth
	}
	return width
}

func (r *Reader) pageHeight() int {
	if _, h, err := render.TerminalSize(); err == nil && h > 1 {
		return h - 1 // status line
	}
	return 23
}

func (r *Reader) scroll(delta int) error {
	st, err := r.current()
	if err != nil {
		return err
	}
	row := r.row + delta

	if !r.seamless {
		// Scrolling past a chapter edge moves into the neighbor chapter.
		if row < 0 && r.chapter > 0 {
			return r.gotoChapter(r.chapter-1, -1)
		}
		if row > len(st.Lines)-1 && r.chapter < len(r.book.Contents())-1 {
			return r.gotoChapter(r.chapter+1, 0)
		}
	}

	if max := len(st.Lines) - 1; row > max {
		row = max
	}
	if row < 0 {
		row = 0
	}
	r.row = row
	if r.seamless {
		r.chapter = chapterAt(r.offsets, r.row)
	}
	return nil
}

// gotoChapter moves to a chapter. A row of -1 means its last line.
func (r *Reader) gotoChapter(index, row int) error {
	if index < 0 || index >= len(r.book.Contents()) {
		return nil
	}
	r.chapter = index

	if r.seamless {
		if _, err := r.current(); err != nil {
			return err
		}
		if row < 0 {
			r.row = r.offsets[index+1] - 1
		} else {
			r.row = r.offsets[index] + row
		}
		return nil
	}

	st, err := r.structure(index, r.clampWidth())
	if err != nil {
		return err
	}
	if row < 0 || row > len(st.Lines)-1 {
		row = len(st.Lines) - 1
	}
	if row < 0 {
		row = 0
	}
	r.row = row
	return nil
}

func (r *Reader) gotoChapterEdge(bottom bool) error {
	if bottom {
		return r.gotoChapter(r.chapter, -1)
	}
	return r.gotoChapter(r.chapter, 0)
}

// adjustWidth relays the text out at a new width, keeping the relative
// position.
func (r *Reader) adjustWidth(delta int) error {
	st, err := r.current()
	if err != nil {
		return err
	}
	frac := fraction(r.row, len(st.Lines))

	width := r.width + delta
	if width < minTextWidth {
		width = minTextWidth
	}
	if width == r.width {
		return nil
	}
	r.width = width
	r.merged, r.offsets = nil, nil
	r.clearSearch()

	cur, err := r.current()
	if err != nil {
		return err
	}
	r.row = rowForFraction(frac, len(cur.Lines))
	if r.seamless {
		r.chapter = chapterAt(r.offsets, r.row)
	}
	return nil
}

// saveState persists the position and progress for the next session.
func (r *Reader) saveState() error {
	st, err := r.current()
	if err != nil {
		return err
	}

	saved := state.ReadingState{
		ContentIndex: r.chapter,
		TextWidth:    r.width,
		Row:          r.row,
		RelPctg:      fraction(r.row, len(st.Lines)),
	}
	if r.seamless {
		// Store the chapter-relative row so non-seamless sessions restore.
		saved.Row = r.row - r.offsets[r.chapter]
		chLines := r.offsets[r.chapter+1] - r.offsets[r.chapter]
		saved.RelPctg = fraction(saved.Row, chLines)
	}

	pct := progress(r.letters, r.chapter, saved.RelPctg)
	if pct < 0 {
		pct = 0
	}
	meta := r.book.Metadata()
	return r.store.PutReadingState(r.book.Path(), meta.Title, meta.Creator, pct, saved)
}

// Close releases everything the session holds.
func (r *Reader) Close() error {
	return multierr.Append(r.book.Close(), r.store.Close())
}
