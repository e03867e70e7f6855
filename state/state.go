// Package state persists reading positions, the reading history, and
// bookmarks in a SQLite database, one row per book keyed by its absolute
// path.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS library (
    filepath  TEXT PRIMARY KEY,
    title     TEXT NOT NULL DEFAULT '',
    author    TEXT NOT NULL DEFAULT '',
    progress  REAL NOT NULL DEFAULT 0,
    last_read INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reading_states (
    filepath      TEXT PRIMARY KEY REFERENCES library(filepath) ON DELETE CASCADE,
    content_index INTEGER NOT NULL DEFAULT 0,
    textwidth     INTEGER NOT NULL DEFAULT 80,
    row           INTEGER NOT NULL DEFAULT 0,
    rel_pctg      REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bookmarks (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    filepath      TEXT NOT NULL,
    name          TEXT NOT NULL,
    content_index INTEGER NOT NULL DEFAULT 0,
    textwidth     INTEGER NOT NULL DEFAULT 80,
    row           INTEGER NOT NULL DEFAULT 0,
    rel_pctg      REAL NOT NULL DEFAULT 0,
    UNIQUE (filepath, name)
);
`

// ReadingState is one saved position: the chapter, the text width the rows
// were laid out at, the top visible row, and the row's position within the
// chapter as a fraction. The fraction restores the position when the next
// session uses a different width.
type ReadingState struct {
	ContentIndex int
	TextWidth    int
	Row          int
	RelPctg      float64
}

// LibraryItem is one history entry.
type LibraryItem struct {
	Path     string
	Title    string
	Author   string
	Progress float64
	LastRead time.Time
}

// Bookmark is a named saved position within one book.
type Bookmark struct {
	Name  string
	State ReadingState
}

// Store wraps a single SQLite connection. Methods serialize on an internal
// mutex, so one Store may be shared across goroutines.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// Open creates or opens the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("state: creating %s: %w", filepath.Dir(path), err)
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("state: opening %s: %w", path, err)
	}
	// SQLite leaves foreign keys off per connection; the reading_states
	// cascade depends on it.
	if err := sqlitex.ExecuteTransient(conn, `PRAGMA foreign_keys = ON;`, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: enabling foreign keys: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: initializing schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// PutReadingState upserts the library row and saved position for a book.
func (s *Store) PutReadingState(path, title, author string, progress float64, st ReadingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`INSERT INTO library (filepath, title, author, progress, last_read)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (filepath) DO UPDATE SET
		     title = excluded.title,
		     author = excluded.author,
		     progress = excluded.progress,
		     last_read = excluded.last_read`,
		&sqlitex.ExecOptions{Args: []any{path, title, author, progress, time.Now().Unix()}})
	if err != nil {
		return fmt.Errorf("state: saving library row for %s: %w", path, err)
	}

	err = sqlitex.Execute(s.conn,
		`INSERT INTO reading_states (filepath, content_index, textwidth, row, rel_pctg)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (filepath) DO UPDATE SET
		     content_index = excluded.content_index,
		     textwidth = excluded.textwidth,
		     row = excluded.row,
		     rel_pctg = excluded.rel_pctg`,
		&sqlitex.ExecOptions{Args: []any{path, st.ContentIndex, st.TextWidth, st.Row, st.RelPctg}})
	if err != nil {
		return fmt.Errorf("state: saving position for %s: %w", path, err)
	}
	return nil
}

// GetReadingState returns the saved position for a book, reporting whether
// one exists.
func (s *Store) GetReadingState(path string) (ReadingState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st ReadingState
	found := false
	err := sqlitex.Execute(s.conn,
		`SELECT content_index, textwidth, row, rel_pctg FROM reading_states WHERE filepath = ?`,
		&sqlitex.ExecOptions{
			Args: []any{path},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				st.ContentIndex = stmt.ColumnInt(0)
				st.TextWidth = stmt.ColumnInt(1)
				st.Row = stmt.ColumnInt(2)
				st.RelPctg = stmt.ColumnFloat(3)
				found = true
				return nil
			},
		})
	if err != nil {
		return ReadingState{}, false, fmt.Errorf("state: loading position for %s: %w", path, err)
	}
	return st, found, nil
}

// Library lists history entries, most recently read first. A limit of 0
// means no limit.
func (s *Store) Library(limit int) ([]LibraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	var items []LibraryItem
	err := sqlitex.Execute(s.conn,
		`SELECT filepath, title, author, progress, last_read
		 FROM library ORDER BY last_read DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				items = append(items, LibraryItem{
					Path:     stmt.ColumnText(0),
					Title:    stmt.ColumnText(1),
					Author:   stmt.ColumnText(2),
					Progress: stmt.ColumnFloat(3),
					LastRead: time.Unix(stmt.ColumnInt64(4), 0),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("state: listing library: %w", err)
	}
	return items, nil
}

// DeleteLibraryItem removes a book from the history along with its saved
// position and bookmarks. The reading_states row goes with the library row
// through the foreign-key cascade.
func (s *Store) DeleteLibraryItem(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range []string{
		`DELETE FROM bookmarks WHERE filepath = ?`,
		`DELETE FROM library WHERE filepath = ?`,
	} {
		if err := sqlitex.Execute(s.conn, q, &sqlitex.ExecOptions{Args: []any{path}}); err != nil {
			return fmt.Errorf("state: deleting %s: %w", path, err)
		}
	}
	return nil
}

// AddBookmark saves a named position, replacing any bookmark of the same
// name for the same book.
func (s *Store) AddBookmark(path, name string, st ReadingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`INSERT INTO bookmarks (filepath, name, content_index, textwidth, row, rel_pctg)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (filepath, name) DO UPDATE SET
		     content_index = excluded.content_index,
		     textwidth = excluded.textwidth,
		     row = excluded.row,
		     rel_pctg = excluded.rel_pctg`,
		&sqlitex.ExecOptions{Args: []any{path, name, st.ContentIndex, st.TextWidth, st.Row, st.RelPctg}})
	if err != nil {
		return fmt.Errorf("state: saving bookmark %q for %s: %w", name, path, err)
	}
	return nil
}

// Bookmarks lists a book's bookmarks in name order.
func (s *Store) Bookmarks(path string) ([]Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marks []Bookmark
	err := sqlitex.Execute(s.conn,
		`SELECT name, content_index, textwidth, row, rel_pctg
		 FROM bookmarks WHERE filepath = ? ORDER BY name`,
		&sqlitex.ExecOptions{
			Args: []any{path},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				marks = append(marks, Bookmark{
					Name: stmt.ColumnText(0),
					State: ReadingState{
						ContentIndex: stmt.ColumnInt(1),
						TextWidth:    stmt.ColumnInt(2),
						Row:          stmt.ColumnInt(3),
						RelPctg:      stmt.ColumnFloat(4),
					},
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("state: listing bookmarks for %s: %w", path, err)
	}
	return marks, nil
}

// DeleteBookmark removes one named bookmark.
func (s *Store) DeleteBookmark(path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`DELETE FROM bookmarks WHERE filepath = ? AND name = ?`,
		&sqlitex.ExecOptions{Args: []any{path, name}})
	if err != nil {
		return fmt.Errorf("state: deleting bookmark %q for %s: %w", name, path, err)
	}
	return nil
}
