package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// SyncPurchaseCategories creates a purchase category for every expense
// category that has none, matching names case-insensitively. Names with a
// tombstoned purchase category are skipped. It returns the created rows,
// including those inserted before a failed insert.
func (s *Store) SyncPurchaseCategories(ctx context.Context) ([]core.PurchaseCategory, error) {
	var (
		userID  uuid.UUID
		created []core.PurchaseCategory
	)
	err := s.call(ctx, "sync purchase categories", func(ctx context.Context, uid uuid.UUID) error {
		userID = uid
		categories, err := s.backend.ListCategories(ctx, uid)
		if err != nil {
			return err
		}
		existing, err := s.backend.ListPurchaseCategories(ctx, uid, true)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing))
		for _, pc := range existing {
			seen[strings.ToLower(pc.CategoryName)] = true
		}
		for _, c := range categories {
			key := strings.ToLower(strings.TrimSpace(c.Name))
			if c.Type != core.Expense || seen[key] {
				continue
			}
			pc, err := s.backend.CreatePurchaseCategory(ctx, uid, core.PurchaseCategoryInput{
				CategoryName:  c.Name,
				MonthlyBudget: decimal.Zero,
				Currency:      s.currency,
				CategoryColor: c.Color,
			})
			if err != nil {
				return err
			}
			seen[key] = true
			created = append(created, pc)
		}
		return nil
	})
	// rows inserted before a failure are committed and still announced
	for _, pc := range created {
		s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: core.CollectionPurchaseCategories, Op: core.OpCreated, EntityID: pc.ID})
	}
	if len(created) > 0 {
		s.logger.InfoContext(ctx, "Purchase categories synced", log.FieldCount, len(created))
		s.refresh(ctx, core.CollectionPurchaseCategories)
	}
	return created, err
}
