package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// TransactionSource reads transactions for events without a row and for
// the startup backfill.
type TransactionSource interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (core.Transaction, error)
}

// MirrorWorker appends newly created transactions to the spreadsheet mirror.
type MirrorWorker struct {
	mirror sheets.Mirror
	source TransactionSource
	logger *log.Logger
}

func NewMirrorWorker(mirror sheets.Mirror, source TransactionSource, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, source: source, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleChange processes one change message from AMQP. Everything other
// than a created transaction is acknowledged without work.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Collection != core.CollectionTransactions || msg.Op != core.OpCreated {
		w.logger.DebugContext(ctx, "Skipping change message",
			log.FieldCollection, string(msg.Collection),
			log.FieldOperation, string(msg.Op))
		return nil
	}

	var tx core.Transaction
	if msg.MirrorsTransaction() {
		tx = *msg.Transaction
	} else {
		if w.source == nil {
			return fmt.Errorf("transaction %s: event has no row and no source is configured", msg.EntityID)
		}
		var err error
		tx, err = w.source.GetTransaction(ctx, msg.UserID, msg.EntityID)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.InfoContext(ctx, "Transaction deleted before mirroring",
				log.FieldUserID, msg.UserID.String(), log.FieldEntityID, msg.EntityID.String())
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
	}

	if _, err := w.mirrorTransaction(ctx, tx); err != nil {
		return fmt.Errorf("mirror transaction: %w", err)
	}
	return nil
}

// Backfill mirrors every transaction not yet present in the spreadsheet.
// It recovers from messages lost while the worker was down.
func (w *MirrorWorker) Backfill(ctx context.Context) (int, error) {
	if w.source == nil {
		return 0, nil
	}
	users, err := w.source.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users for backfill: %w", err)
	}

	synced, failed := 0, 0
	for _, userID := range users {
		txs, err := w.source.ListTransactions(ctx, userID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to list transactions for backfill",
				log.FieldUserID, userID.String(), log.FieldError, err)
			failed++
			continue
		}
		for _, tx := range txs {
			if err := ctx.Err(); err != nil {
				return synced, err
			}
			appended, err := w.mirrorTransaction(ctx, tx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to mirror transaction during backfill",
					log.FieldEntityID, tx.ID.String(), log.FieldError, err)
				failed++
				continue
			}
			if appended {
				synced++
			}
		}
	}

	w.logger.InfoContext(ctx, "Mirror backfill completed",
		"users", len(users),
		"synced", synced,
		"errors", failed)
	return synced, nil
}

// mirrorTransaction appends tx unless its ref is already in the sheet.
func (w *MirrorWorker) mirrorTransaction(ctx context.Context, tx core.Transaction) (bool, error) {
	if tx.Ref == "" {
		return false, fmt.Errorf("transaction %s has no ref: %w", tx.ID, core.ErrValidation)
	}
	exists, err := w.mirror.HasRef(ctx, tx.Date.UTC().Year(), tx.Ref)
	if err != nil {
		return false, fmt.Errorf("check mirrored ref: %w", err)
	}
	if exists {
		w.logger.DebugContext(ctx, "Transaction already mirrored", "ref", tx.Ref)
		return false, nil
	}

	ref, err := w.mirror.Append(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully mirrored transaction",
		log.FieldUserID, tx.UserID.String(),
		log.FieldEntityID, tx.ID.String(),
		log.FieldSheetsRef, ref,
		log.FieldAmount, tx.Signed().StringFixed(2))
	return true, nil
}
