package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

const uniqueViolation = "23505"

type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to the database at dsn and prepares the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL("BIGSERIAL PRIMARY KEY")); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	logger.Debug("postgres store ready")

	return &Postgres{pool: pool, logger: logger}, nil
}

func (s *Postgres) Append(ctx context.Context, p *posting.Posting) error {
	if err := validate(p); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, insertSQL(func(i int) string { return "$" + strconv.Itoa(i) }), recordValues(p)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert posting: %w", err)
	}

	return nil
}

func (s *Postgres) ListRecent(ctx context.Context, limit int) ([]*posting.Posting, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, selectSQL(true, "$1"), limit)
	} else {
		rows, err = s.pool.Query(ctx, selectSQL(false, ""))
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

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
