package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Collection names a mirrored entity collection.
type Collection string

const (
	CollectionAccounts           Collection = "accounts"
	CollectionTransactions       Collection = "transactions"
	CollectionCategories         Collection = "categories"
	CollectionPurchases          Collection = "purchases"
	CollectionPurchaseCategories Collection = "purchase_categories"
	CollectionLendBorrows        Collection = "lend_borrow"
	CollectionLendBorrowReturns  Collection = "lend_borrow_returns"
	CollectionDonationSavings    Collection = "donation_savings"
	CollectionSavingsGoals       Collection = "savings_goals"
	CollectionDPSTransfers       Collection = "dps_transfers"
)

type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeEvent is published after every successful mutation.
type ChangeEvent struct {
	UserID     uuid.UUID  `json:"user_id"`
	Collection Collection `json:"collection"`
	Op         ChangeOp   `json:"op"`
	EntityID   uuid.UUID  `json:"entity_id"`
	At         time.Time  `json:"at"`
	// Transaction carries the row for created transactions so consumers
	// can mirror it without reading the database.
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Notifier delivers change events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, ev ChangeEvent) error
}
