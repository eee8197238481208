package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mgomes/mdindex/internal/indexer"
)

// DB caches the last snapshot so a restart can show the previous document
// list before the first scan completes. It is not a watch journal.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			position INTEGER PRIMARY KEY,
			path TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			modified_at INTEGER NOT NULL,
			size INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at INTEGER NOT NULL,
			document_count INTEGER NOT NULL
		);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the cached snapshot in one transaction.
func (db *DB) SaveSnapshot(snap indexer.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec("DELETE FROM documents"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO documents (position, path, name, modified_at, size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	for i, e := range snap {
		if _, err := stmt.Exec(i, e.Path, e.Name, e.Modified, e.Size); err != nil {
			return fmt.Errorf("failed to insert %s: %w", e.Path, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshot_meta (id, saved_at, document_count) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			saved_at = excluded.saved_at,
			document_count = excluded.document_count
	`, time.Now().Unix(), len(snap)); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadSnapshot returns the cached snapshot in its saved order.
func (db *DB) LoadSnapshot() (indexer.Snapshot, error) {
	rows, err := db.conn.Query("SELECT path, name, modified_at, size FROM documents ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	snap := indexer.Snapshot{}
	for rows.Next() {
		var e indexer.DocumentEntry
		if err := rows.Scan(&e.Path, &e.Name, &e.Modified, &e.Size); err != nil {
			return nil, err
		}
		snap = append(snap, e)
	}
	return snap, rows.Err()
}

// SavedAt returns when the snapshot was last saved, or the zero time if
// nothing has been saved yet.
func (db *DB) SavedAt() (time.Time, error) {
	var ts int64
	err := db.conn.QueryRow("SELECT saved_at FROM snapshot_meta WHERE id = 1").Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

func (db *DB) DocumentCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	return count, err
}
