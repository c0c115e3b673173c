package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/job-intake/internal/posting"
)

const defaultSQLitePath = "jobs.db"

type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating when needed) the database file at path.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if path = strings.TrimSpace(path); path == "" {
		path = defaultSQLitePath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL("INTEGER PRIMARY KEY AUTOINCREMENT")); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	logger.Debug("sqlite store ready", zap.String("path", path))

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Append(ctx context.Context, p *posting.Posting) error {
	if err := validate(p); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, insertSQL(func(int) string { return "?" }), recordValues(p)...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert posting: %w", err)
	}

	return nil
}

func (s *SQLite) ListRecent(ctx context.Context, limit int) ([]*posting.Posting, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, selectSQL(true, "?"), limit)
	} else {
		rows, err = s.db.QueryContext(ctx, selectSQL(false, ""))
	}
	if err != nil {
		return nil, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()

	var out []*posting.Posting
	for rows.Next() {
		values := make([]string, len(posting.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, fromValues(values))
	}

	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
