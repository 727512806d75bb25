package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xo/dburl"
	_ "modernc.org/sqlite"
)

const defaultDBName = "eventify.db"

// Config selects the database: URL wins over the workspace default.
type Config struct {
	Workspace string
	URL       string
}

func dbPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".eventify", defaultDBName)
}

// EnsureWorkspace creates workspace directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := filepath.Join(workspace, ".eventify")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the SQLite database with foreign keys on.
func Open(cfg Config) (*sql.DB, error) {
	path, err := resolvePath(cfg)
	if err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single writer keeps transactions from tripping over SQLITE_BUSY
	conn.SetMaxOpenConns(1)
	return conn, nil
}

func resolvePath(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
			return "", err
		}
		return dbPath(cfg.Workspace), nil
	}
	u, err := dburl.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	if u.Driver != "sqlite3" {
		return "", fmt.Errorf("unsupported database driver %q (only sqlite is supported)", u.Driver)
	}
	path, _, _ := strings.Cut(u.DSN, "?")
	if path == "" {
		return "", fmt.Errorf("database url %q has no path", cfg.URL)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	return path, nil
}

// Path returns the db path for the workspace.
func Path(workspace string) string {
	return dbPath(workspace)
}
