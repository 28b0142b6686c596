package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// DBFileName is the index database name inside the data directory.
const DBFileName = "hbnb.db"

// ErrClosed is returned by operations on a closed Index.
var ErrClosed = errors.New("index is closed")

// Index mirrors registry entities into a SQLite table for counting and
// type queries.
type Index struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates a fresh index database in dataDir. Any existing database
// file is removed first so the schema always matches.
func Open(dataDir string) (*Index, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Index{db: db}, nil
}

// Close releases the database. Close is idempotent.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return nil
	}
	err := ix.db.Close()
	ix.db = nil
	return err
}

// Replace swaps the whole table contents for entities in one transaction.
func (ix *Index) Replace(entities []types.Entity) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return ErrClosed
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM objects"); err != nil {
		return fmt.Errorf("clearing objects: %w", err)
	}

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		args, err := rowArgs(e)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting %s: %w", types.Key(e), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace transaction: %w", err)
	}
	return nil
}

// Put inserts or updates the row for e.
func (ix *Index) Put(e types.Entity) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return ErrClosed
	}
	args, err := rowArgs(e)
	if err != nil {
		return err
	}
	if _, err := ix.db.Exec(upsertSQL, args...); err != nil {
		return fmt.Errorf("upserting %s: %w", types.Key(e), err)
	}
	return nil
}

// Remove deletes the row for key. Removing an absent key is not an error.
func (ix *Index) Remove(key string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return ErrClosed
	}
	if _, err := ix.db.Exec("DELETE FROM objects WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Count returns the number of rows of typeName, or all rows when typeName
// is empty.
func (ix *Index) Count(typeName string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return 0, ErrClosed
	}

	var (
		n   int
		row *sql.Row
	)
	if typeName == "" {
		row = ix.db.QueryRow("SELECT COUNT(*) FROM objects")
	} else {
		row = ix.db.QueryRow("SELECT COUNT(*) FROM objects WHERE type = ?", typeName)
	}
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting objects: %w", err)
	}
	return n, nil
}

const upsertSQL = `INSERT INTO objects (key, type, id, created_at, updated_at, body)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    type = excluded.type,
    id = excluded.id,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at,
    body = excluded.body`

// rowArgs returns the column values for e in upsertSQL order.
func rowArgs(e types.Entity) ([]any, error) {
	b := e.Core()
	body, err := types.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", types.Key(e), err)
	}
	return []any{
		types.Key(e),
		e.TypeName(),
		b.ID,
		types.FormatTime(b.CreatedAt),
		types.FormatTime(b.UpdatedAt),
		string(body),
	}, nil
}
