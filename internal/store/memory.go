package store

import (
	"context"
	"sync"

	"github.com/spigell/job-intake/internal/posting"
)

// Memory keeps rows in process. Rows are stored in their rendered form so
// reads return the same data a database driver would.
type Memory struct {
	mu   sync.RWMutex
	rows []map[string]string
	ids  map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]struct{})}
}

func (m *Memory) Append(_ context.Context, p *posting.Posting) error {
	if err := validate(p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[p.ID]; ok {
		return ErrDuplicateID
	}

	m.ids[p.ID] = struct{}{}
	m.rows = append(m.rows, p.Record())
	return nil
}

func (m *Memory) ListRecent(_ context.Context, limit int) ([]*posting.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.rows
	if limit > 0 && limit < len(rows) {
		rows = rows[len(rows)-limit:]
	}

	out := make([]*posting.Posting, 0, len(rows))
	for _, row := range rows {
		out = append(out, posting.FromRecord(row))
	}
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *Memory) Close() error { return nil }
