package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite wraps the embedded single-binary storage backend used when the
// routing engine runs standalone without a Postgres instance. Adapters that
// support it open their own prepared statements against DB directly; gorm
// is reserved for the Postgres backend where its migration/query ergonomics
// pay for themselves.
type SQLite struct {
	DB *sql.DB
}

func ConnectSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "contex.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // sqlite serializes writers; avoid lock contention storms

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := sqlDB.Exec(stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLite{DB: sqlDB}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
