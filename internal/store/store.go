// Package store holds the per-user view of a finance backend. A Store keeps
// an in-memory snapshot of every collection, serializes snapshot swaps and
// routes writes through the backend before refreshing what they touched.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	DefaultOperationTimeout = 15 * time.Second
	DefaultCurrency         = "USD"
)

// Snapshot is a point-in-time copy of the user's collections.
type Snapshot struct {
	Accounts           []core.Account
	Transactions       []core.Transaction
	Categories         []core.Category
	Purchases          []core.Purchase
	PurchaseCategories []core.PurchaseCategory
	LendBorrows        []core.LendBorrow
	LendBorrowReturns  []core.LendBorrowReturn
	DonationSavings    []core.DonationSavingRecord
	SavingsGoals       []core.SavingsGoal
	DPSTransfers       []core.DPSTransfer
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Accounts:           slices.Clone(s.Accounts),
		Transactions:       slices.Clone(s.Transactions),
		Categories:         slices.Clone(s.Categories),
		Purchases:          slices.Clone(s.Purchases),
		PurchaseCategories: slices.Clone(s.PurchaseCategories),
		LendBorrows:        slices.Clone(s.LendBorrows),
		LendBorrowReturns:  slices.Clone(s.LendBorrowReturns),
		DonationSavings:    slices.Clone(s.DonationSavings),
		SavingsGoals:       slices.Clone(s.SavingsGoals),
		DPSTransfers:       slices.Clone(s.DPSTransfers),
	}
}

// Options tune a Store. Zero values fall back to defaults.
type Options struct {
	OperationTimeout time.Duration
	DefaultCurrency  string
	Notifier         core.Notifier
	Logger           *log.Logger
	Now              func() time.Time
}

type Store struct {
	backend  backend.Backend
	timeout  time.Duration
	currency string
	notifier core.Notifier
	logger   *log.Logger
	audit    *log.StructuredLogger
	now      func() time.Time

	mu       sync.Mutex
	userID   uuid.UUID
	epoch    uint64
	snap     Snapshot
	issued   map[core.Collection]uint64
	applied  map[core.Collection]uint64
	lastErr  string
	inflight atomic.Int64

	fetchers map[core.Collection]func(context.Context) error
}

func New(b backend.Backend, opts Options) *Store {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = DefaultCurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.WithComponent(log.ComponentStore)
	s := &Store{
		backend:  b,
		timeout:  opts.OperationTimeout,
		currency: core.NormalizeCurrency(opts.DefaultCurrency),
		notifier: opts.Notifier,
		logger:   logger,
		audit:    log.NewStructuredLogger(logger),
		now:      opts.Now,
		issued:   make(map[core.Collection]uint64),
		applied:  make(map[core.Collection]uint64),
	}
	s.fetchers = map[core.Collection]func(context.Context) error{
		core.CollectionAccounts:           s.FetchAccounts,
		core.CollectionTransactions:       s.FetchTransactions,
		core.CollectionCategories:         s.FetchCategories,
		core.CollectionPurchases:          s.FetchPurchases,
		core.CollectionPurchaseCategories: s.FetchPurchaseCategories,
		core.CollectionLendBorrows:        s.FetchLendBorrows,
		core.CollectionLendBorrowReturns:  s.FetchLendBorrowReturns,
		core.CollectionDonationSavings:    s.FetchDonationSavings,
		core.CollectionSavingsGoals:       s.FetchSavingsGoals,
		core.CollectionDPSTransfers:       s.FetchDPSTransfers,
	}
	return s
}

// SignIn scopes the store to userID and drops any previous user's data.
func (s *Store) SignIn(userID uuid.UUID) {
	s.reset(userID)
}

func (s *Store) SignOut() {
	s.reset(uuid.Nil)
}

func (s *Store) reset(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.epoch++
	s.snap = Snapshot{}
	s.lastErr = ""
}

// UserID returns the signed in user or uuid.Nil.
func (s *Store) UserID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Snapshot returns a copy of the current collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// view returns the live snapshot for read-only use inside the package.
func (s *Store) view() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Loading reports whether any backend call is in flight.
func (s *Store) Loading() bool {
	return s.inflight.Load() > 0
}

// Err returns the message of the last failed operation, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) session() (uuid.UUID, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uuid.Nil {
		return uuid.Nil, 0, core.ErrNotAuthenticated
	}
	return s.userID, s.epoch, nil
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	return err
}

func (s *Store) clearErr() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// call runs fn against the backend under the operation timeout.
func (s *Store) call(ctx context.Context, op string, fn func(ctx context.Context, userID uuid.UUID) error) error {
	userID, _, err := s.session()
	if err != nil {
		return s.fail(err)
	}
	s.clearErr()
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx, userID); err != nil {
		return s.fail(fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// fetch loads one collection and swaps it in unless a newer fetch of the
// same collection was started in the meantime.
func fetch[T any](s *Store, ctx context.Context, c core.Collection,
	list func(context.Context, uuid.UUID) ([]T, error), assign func(*Snapshot, []T)) error {
	userID, epoch, err := s.session()
	if err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	s.issued[c]++
	seq := s.issued[c]
	s.mu.Unlock()

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := list(ctx, userID)
	if err != nil {
		return s.fail(fmt.Errorf("fetch %s: %w", c, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || seq <= s.applied[c] {
		s.logger.Debug("Discarding stale fetch", log.FieldCollection, string(c), "seq", seq)
		return nil
	}
	next := s.snap
	assign(&next, rows)
	s.snap = next
	s.applied[c] = seq
	return nil
}

// refresh refetches collections concurrently after a committed write.
// Failures are recorded in Err but do not undo the write.
func (s *Store) refresh(ctx context.Context, collections ...core.Collection) {
	var g errgroup.Group
	for _, c := range collections {
		f := s.fetchers[c]
		g.Go(func() error { return f(ctx) })
	}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Refresh after write failed", log.FieldError, err.Error())
	}
}

// publish logs the mutation and forwards it to the notifier.
func (s *Store) publish(ctx context.Context, ev core.ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	s.audit.LogMutation(ctx, ev.UserID.String(), string(ev.Collection), string(ev.Op), ev.EntityID.String())
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			log.NewFields().WithEntity(ev.UserID.String(), string(ev.Collection), ev.EntityID.String()).WithError(err).ToSlice()...)
	}
}
