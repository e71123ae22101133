package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// DPSSource lists the accounts to fund and their last transfer.
type DPSSource interface {
	ListDPSAccounts(ctx context.Context) ([]core.Account, error)
	LastDPSTransfer(ctx context.Context, userID, fromAccountID uuid.UUID) (core.DPSTransfer, error)
}

// DPSTransferer performs a DPS transfer on behalf of a user. store.Registry
// satisfies it through its per-user stores.
type DPSTransferer interface {
	TransferDPS(ctx context.Context, userID uuid.UUID, in core.DPSTransferInput) (core.DPSTransfer, error)
}

// DPSProcessor creates the automatic monthly DPS transfers.
type DPSProcessor struct {
	source   DPSSource
	transfer DPSTransferer
	logger   *log.Logger
}

func NewDPSProcessor(source DPSSource, transfer DPSTransferer, logger *log.Logger) *DPSProcessor {
	return &DPSProcessor{source: source, transfer: transfer, logger: logger.WithComponent(log.ComponentDPS)}
}

// ProcessDue funds every fixed-amount DPS account that is due at now and
// returns how many transfers were made. A failing account is logged and
// skipped.
func (p *DPSProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.source == nil || p.transfer == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	accounts, err := p.source.ListDPSAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list dps accounts: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing DPS accounts",
		"total_active", len(accounts),
		"processing_date", now.Format(time.DateOnly))

	processed := 0
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		amount, ok := fixedAmount(a)
		if !ok {
			continue
		}
		due, err := p.isDue(ctx, a, now)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to check if DPS is due",
				log.FieldAccountID, a.ID.String(), log.FieldError, err)
			continue
		}
		if !due {
			continue
		}

		tr, err := p.transfer.TransferDPS(ctx, a.UserID, core.DPSTransferInput{
			FromAccountID: a.ID,
			Amount:        amount,
			Date:          now,
		})
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to create DPS transfer",
				log.FieldUserID, a.UserID.String(), log.FieldAccountID, a.ID.String(), log.FieldError, err)
			continue
		}
		processed++
		p.logger.InfoContext(ctx, "Created DPS transfer",
			log.FieldUserID, a.UserID.String(),
			log.FieldAccountID, a.ID.String(),
			log.FieldEntityID, tr.ID.String(),
			log.FieldAmount, amount.StringFixed(2))
	}

	p.logger.InfoContext(ctx, "DPS processing complete",
		"processed", processed,
		"total_checked", len(accounts))
	return processed, nil
}

func (p *DPSProcessor) isDue(ctx context.Context, a core.Account, now time.Time) (bool, error) {
	checker, err := GetDuenessChecker(a.DPSType)
	if err != nil {
		return false, err
	}
	var last time.Time
	tr, err := p.source.LastDPSTransfer(ctx, a.UserID, a.ID)
	switch {
	case err == nil:
		last = tr.Date
	case !errors.Is(err, core.ErrNotFound):
		return false, fmt.Errorf("last dps transfer: %w", err)
	}
	return checker.IsDue(last, now), nil
}

// fixedAmount returns the amount to move for fixed DPS accounts. "Up to"
// accounts are funded manually.
func fixedAmount(a core.Account) (decimal.Decimal, bool) {
	if a.DPSAmountType != core.DPSFixed || !a.DPSFixedAmount.Valid || !a.DPSFixedAmount.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return a.DPSFixedAmount.Decimal, true
}
