package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/posting"
)

const (
	maxDescriptionRunes = 500
	defaultTimeout      = 20 * time.Second
)

// Scraper returns raw postings for a query page. It never fails: broken
// sources are logged and contribute nothing.
type Scraper interface {
	Fetch(ctx context.Context, query string, page int) []*posting.Posting
}

// Source is a single job board.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, page int) ([]*posting.Posting, error)
}

// Multi queries every source in turn and concatenates the results.
type Multi struct {
	sources []Source
	timeout time.Duration
	logger  *zap.Logger
}

func NewMulti(sources []Source, timeout time.Duration, logger *zap.Logger) *Multi {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{sources: sources, timeout: timeout, logger: logger}
}

func (m *Multi) Len() int {
	return len(m.sources)
}

func (m *Multi) Fetch(ctx context.Context, query string, page int) []*posting.Posting {
	var out []*posting.Posting
	for _, source := range m.sources {
		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		items, err := source.Search(callCtx, query, page)
		cancel()

		fields := logger.QueryFields(source.Name(), query, page)
		if err != nil {
			m.logger.Warn("source failed", append(fields, zap.Error(err))...)
			continue
		}

		m.logger.Debug("source fetched", append(fields, zap.Int("count", len(items)))...)
		out = append(out, items...)
	}
	return out
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
