package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	table = "postings"
)

// ErrDuplicateID is returned when a posting with the same ID is already stored.
var ErrDuplicateID = errors.New("posting id already stored")

// Store is the append-only table of accepted postings.
type Store interface {
	// Append writes one posting as a new row. Existing rows are never changed.
	Append(ctx context.Context, p *posting.Posting) error
	// ListRecent returns the newest limit postings, oldest first.
	// limit <= 0 returns every stored posting.
	ListRecent(ctx context.Context, limit int) ([]*posting.Posting, error)
	Close() error
}

type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Open connects the configured driver and prepares its schema.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	logger = logger.With(zap.String("store_driver", driver))

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, logger)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// columnKeys returns the storage column names in layout order.
func columnKeys() []string {
	keys := make([]string, len(posting.Columns))
	for i, c := range posting.Columns {
		keys[i] = posting.ColumnKey(c)
	}
	return keys
}

func createTableSQL(seqColumn string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\tseq %s", table, seqColumn)
	for _, key := range columnKeys() {
		if key == posting.ColumnKey(posting.ColumnJobID) {
			fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL UNIQUE", key)
			continue
		}
		fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL DEFAULT ''", key)
	}
	b.WriteString("\n)")
	return b.String()
}

func insertSQL(placeholder func(i int) string) string {
	keys := columnKeys()
	marks := make([]string, len(keys))
	for i := range keys {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(keys, ", "), strings.Join(marks, ", "))
}

func selectSQL(limited bool, placeholder string) string {
	cols := strings.Join(columnKeys(), ", ")
	if !limited {
		return fmt.Sprintf("SELECT %s FROM %s ORDER BY seq ASC", cols, table)
	}
	return fmt.Sprintf("SELECT %s FROM (SELECT seq, %s FROM %s ORDER BY seq DESC LIMIT %s) recent ORDER BY seq ASC",
		cols, cols, table, placeholder)
}

func recordValues(p *posting.Posting) []any {
	row := p.Record()
	values := make([]any, len(posting.Columns))
	for i, c := range posting.Columns {
		values[i] = row[c]
	}
	return values
}

func fromValues(values []string) *posting.Posting {
	row := make(map[string]string, len(values))
	for i, c := range posting.Columns {
		row[c] = values[i]
	}
	return posting.FromRecord(row)
}

func validate(p *posting.Posting) error {
	if p == nil {
		return errors.New("posting is required")
	}
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("posting id is required")
	}
	return nil
}
