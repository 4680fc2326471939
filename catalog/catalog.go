// Package catalog keeps a sqlite record of the audio and MIDI files imported
// into or written by sessions.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cliptrack/cliptrack"
)

type (
	Catalog struct {
		db  *sql.DB
		now func() time.Time
	}

	// Entry is a file known to the catalog.
	Entry struct {
		Path     string
		Kind     cliptrack.ClipKind
		Size     int64
		Added    time.Time
		Modified time.Time
	}
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	kind INTEGER NOT NULL,
	size INTEGER NOT NULL,
	added INTEGER NOT NULL,
	modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_kind ON files(kind);
`

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create catalog tables: %w", err)
	}
	return &Catalog{db: db, now: time.Now}, nil
}

// Register records a file, or refreshes its size and modification time if
// it is already known.
func (c *Catalog) Register(kind cliptrack.ClipKind, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	var size, modified int64
	if info, err := os.Stat(abs); err == nil {
		size, modified = info.Size(), info.ModTime().Unix()
	}
	_, err = c.db.Exec(`
		INSERT INTO files (path, kind, size, added, modified) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, size = excluded.size, modified = excluded.modified`,
		abs, int(kind), size, c.now().Unix(), modified)
	if err != nil {
		return fmt.Errorf("could not register %s: %w", abs, err)
	}
	return nil
}

// Files lists the files of a kind, most recently added first.
func (c *Catalog) Files(kind cliptrack.ClipKind) ([]Entry, error) {
	rows, err := c.db.Query(`SELECT path, kind, size, added, modified FROM files WHERE kind = ? ORDER BY added DESC, path`, int(kind))
	if err != nil {
		return nil, fmt.Errorf("could not query catalog: %w", err)
	}
	defer rows.Close()
	var ret []Entry
	for rows.Next() {
		var e Entry
		var k int
		var added, modified int64
		if err := rows.Scan(&e.Path, &k, &e.Size, &added, &modified); err != nil {
			return nil, fmt.Errorf("could not scan catalog row: %w", err)
		}
		e.Kind = cliptrack.ClipKind(k)
		e.Added = time.Unix(added, 0)
		e.Modified = time.Unix(modified, 0)
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

// Forget removes a file from the catalog.
func (c *Catalog) Forget(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, err := c.db.Exec(`DELETE FROM files WHERE path = ?`, abs); err != nil {
		return fmt.Errorf("could not forget %s: %w", abs, err)
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
