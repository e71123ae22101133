package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/log"
)

// OverdueMarker flips past-due lend/borrow records across all users.
type OverdueMarker interface {
	MarkAllOverdue(ctx context.Context, now time.Time) (int, error)
}

type OverdueSweeper struct {
	marker OverdueMarker
	logger *log.Logger
}

func NewOverdueSweeper(marker OverdueMarker, logger *log.Logger) *OverdueSweeper {
	return &OverdueSweeper{marker: marker, logger: logger.WithComponent(log.ComponentSweeper)}
}

func (s *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := s.marker.MarkAllOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Marked lend/borrow records overdue", log.FieldCount, n)
	}
	return n, nil
}
