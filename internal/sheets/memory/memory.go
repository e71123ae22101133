package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Mirror keeps mirrored rows in process, keyed by year.
type Mirror struct {
	mu   sync.Mutex
	rows map[int][][]any
	refs map[int]map[string]bool
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[int][][]any{}, refs: map[int]map[string]bool{}}
}

// Append stores the row and returns a synthetic row reference.
func (m *Mirror) Append(_ context.Context, t core.Transaction) (string, error) {
	if t.Ref == "" {
		return "", fmt.Errorf("transaction %s has no ref: %w", t.ID, core.ErrValidation)
	}
	year := t.Date.UTC().Year()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[year] = append(m.rows[year], sheets.Row(t))
	if m.refs[year] == nil {
		m.refs[year] = map[string]bool{}
	}
	m.refs[year][t.Ref] = true
	return fmt.Sprintf("mem:%d:%d", year, len(m.rows[year])), nil
}

func (m *Mirror) HasRef(_ context.Context, year int, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[year][ref], nil
}

// Rows returns a copy of the rows mirrored for year.
func (m *Mirror) Rows(year int) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.rows[year]...)
}
