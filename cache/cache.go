// Package cache stores compiled artifacts keyed by source content hash,
// so rebuilding an unchanged script skips compilation entirely.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrMiss indicates no cached build exists for the key.
var ErrMiss = errors.New("cache miss")

// Cache is a SQLite-backed store of compiled programs and their debug
// sidecars.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens a cache database at path, creating it and any parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		key TEXT PRIMARY KEY,
		binary BLOB NOT NULL,
		debug BLOB,
		created_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating builds table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key formats a content hash as a cache key.
func Key(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// Put stores a build under a key, replacing any previous entry.
// debugData may be nil when sidecars are disabled.
func (c *Cache) Put(key string, binary, debugData []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO builds (key, binary, debug, created_at) VALUES (?, ?, ?, ?)",
		key, binary, debugData, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing build: %w", err)
	}
	return nil
}

// Get returns the cached build for a key, or ErrMiss.
func (c *Cache) Get(key string) (binary, debugData []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.db.QueryRow("SELECT binary, debug FROM builds WHERE key = ?", key).
		Scan(&binary, &debugData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrMiss
		}
		return nil, nil, fmt.Errorf("querying build: %w", err)
	}
	return binary, debugData, nil
}
