package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	transferCategory    = "Transfer"
	dpsTransferCategory = "DPS"
)

// Transfer moves money between two of the user's accounts. Both legs carry
// the returned transfer id in their tags and are written atomically.
func (s *Store) Transfer(ctx context.Context, in core.TransferInput) (uuid.UUID, error) {
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return uuid.Nil, err
	}
	transferID := uuid.New()
	tags := core.TransferTags(core.TagTransfer, transferID)
	description := in.Description
	if description == "" {
		description = "Transfer"
	}
	legs := []core.TransactionInput{
		{AccountID: in.FromAccountID, Type: core.Expense, Amount: in.FromAmount, Description: description,
			Category: transferCategory, Date: in.Date, Tags: tags},
		{AccountID: in.ToAccountID, Type: core.Income, Amount: in.ToAmount(), Description: description,
			Category: transferCategory, Date: in.Date, Tags: tags},
	}
	for i := range legs {
		legs[i].Normalize()
		if err := s.guard(legs[i].Validate()); err != nil {
			return uuid.Nil, err
		}
	}

	var (
		userID  uuid.UUID
		created []core.Transaction
	)
	err := s.call(ctx, "transfer", func(ctx context.Context, uid uuid.UUID) error {
		var err error
		userID = uid
		created, err = s.backend.CreateTransfer(ctx, uid, legs)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.logger.InfoContext(ctx, "Transfer recorded",
		log.FieldTransferID, transferID.String(), log.FieldAmount, in.FromAmount.String())
	s.publishTransactions(ctx, userID, created...)
	s.refresh(ctx, core.CollectionTransactions, core.CollectionAccounts)
	return transferID, nil
}

// DeleteTransfer removes both legs of a transfer.
func (s *Store) DeleteTransfer(ctx context.Context, transferID uuid.UUID) error {
	var userID uuid.UUID
	err := s.call(ctx, "delete transfer", func(ctx context.Context, uid uuid.UUID) error {
		userID = uid
		n, err := s.backend.DeleteTransfer(ctx, uid, transferID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("transfer %s: %w", transferID, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: core.CollectionTransactions, Op: core.OpDeleted, EntityID: transferID})
	s.refresh(ctx, core.CollectionTransactions, core.CollectionAccounts, core.CollectionDPSTransfers)
	return nil
}

// TransferDPS funds the savings account linked to a DPS enabled account.
func (s *Store) TransferDPS(ctx context.Context, in core.DPSTransferInput) (core.DPSTransfer, error) {
	in.Amount = core.RoundMoney(in.Amount)
	if in.Date.IsZero() {
		in.Date = s.now().UTC()
	}
	if err := s.guard(in.Validate()); err != nil {
		return core.DPSTransfer{}, err
	}

	var (
		userID uuid.UUID
		out    core.DPSTransfer
	)
	err := s.call(ctx, "dps transfer", func(ctx context.Context, uid uuid.UUID) error {
		userID = uid
		source, err := s.backend.GetAccount(ctx, uid, in.FromAccountID)
		if err != nil {
			return err
		}
		if !source.DPSEnabled() {
			return fmt.Errorf("account %s: %w", source.ID, core.ErrDPSNotConfigured)
		}
		if *source.DPSSavingsAccount == source.ID {
			return fmt.Errorf("account %s funds itself: %w: %w", source.ID, core.ErrValidation, core.ErrSameAccount)
		}
		transferID := uuid.New()
		tags := core.TransferTags(core.TagDPSTransfer, transferID)
		description := "DPS transfer from " + source.Name
		legs := [2]core.TransactionInput{
			{AccountID: source.ID, Type: core.Expense, Amount: in.Amount, Description: description,
				Category: dpsTransferCategory, Date: in.Date, Tags: tags},
			{AccountID: *source.DPSSavingsAccount, Type: core.Income, Amount: in.Amount, Description: description,
				Category: dpsTransferCategory, Date: in.Date, Tags: tags},
		}
		for i := range legs {
			legs[i].Normalize()
			if err := legs[i].Validate(); err != nil {
				return err
			}
		}
		out, err = s.backend.TransferDPS(ctx, uid, legs)
		return err
	})
	if err != nil {
		return core.DPSTransfer{}, err
	}
	s.logger.InfoContext(ctx, "DPS transfer recorded",
		log.FieldTransferID, out.ID.String(), log.FieldAccountID, out.FromAccountID.String(), log.FieldAmount, out.Amount.String())
	s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: core.CollectionDPSTransfers, Op: core.OpCreated, EntityID: out.ID})
	// legs go out without rows; consumers load them by id
	for _, txID := range []uuid.UUID{out.FromTransactionID, out.ToTransactionID} {
		s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: core.CollectionTransactions, Op: core.OpCreated, EntityID: txID})
	}
	s.refresh(ctx, core.CollectionDPSTransfers, core.CollectionTransactions, core.CollectionAccounts)
	return out, nil
}
