// Package memory is an in-process spreadsheet mirror for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledger/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[int64]sheets.Row{}}
}

func (m *Mirror) UpsertRow(_ context.Context, r sheets.Row) (string, error) {
	if r.HistoryID <= 0 {
		return "", fmt.Errorf("invalid history id %d", r.HistoryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.HistoryID] = r
	return fmt.Sprintf("mem:%d", r.HistoryID), nil
}

func (m *Mirror) ClearRow(_ context.Context, historyID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, historyID)
	return nil
}

// Rows returns a snapshot ordered by history id.
func (m *Mirror) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sheets.Row, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HistoryID < out[j].HistoryID })
	return out
}
