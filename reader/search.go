package reader

import (
	"fmt"
	"regexp"
)

// startSearch prompts for a pattern and jumps to the first match at or
// after the current row.
func (r *Reader) startSearch() error {
	pattern, ok := r.prompt("/")
	if !ok || pattern == "" {
		r.clearSearch()
		return nil
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("bad pattern: %w", err)
	}

	st, err := r.current()
	if err != nil {
		return err
	}
	r.searchRe = re
	r.matches = matchRows(re, st.Lines)
	if len(r.matches) == 0 {
		r.clearSearch()
		r.status = "no matches"
		return nil
	}

	r.matchIdx = 0
	for i, row := range r.matches {
		if row >= r.row {
			r.matchIdx = i
			break
		}
	}
	return r.gotoMatch()
}

// matchRows returns the rows containing at least one match, in order.
func matchRows(re *regexp.Regexp, lines []string) []int {
	var rows []int
	for i, line := range lines {
		if re.MatchString(line) {
			rows = append(rows, i)
		}
	}
	return rows
}

// jumpMatch moves to the next or previous match, wrapping around.
func (r *Reader) jumpMatch(dir int) error {
	if len(r.matches) == 0 {
		r.status = "no active search"
		return nil
	}
	r.matchIdx = (r.matchIdx + dir + len(r.matches)) % len(r.matches)
	return r.gotoMatch()
}

func (r *Reader) gotoMatch() error {
	row := r.matches[r.matchIdx]
	r.row = row
	if r.seamless {
		r.chapter = chapterAt(r.offsets, row)
	}
	r.status = fmt.Sprintf("match %d/%d", r.matchIdx+1, len(r.matches))
	return nil
}

func (r *Reader) clearSearch() {
	r.searchRe = nil
	r.matches = nil
	r.matchIdx = 0
}
