// Package memory is an in-process implementation of every backend port,
// used by tests and the demo mode.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users              map[uuid.UUID]core.User
	accounts           map[uuid.UUID]core.Account
	transactions       map[uuid.UUID]core.Transaction
	categories         map[uuid.UUID]core.Category
	purchases          map[uuid.UUID]core.Purchase
	purchaseCategories map[uuid.UUID]core.PurchaseCategory
	lendBorrows        map[uuid.UUID]core.LendBorrow
	returns            map[uuid.UUID]core.LendBorrowReturn
	donationSavings    map[uuid.UUID]core.DonationSavingRecord
	savingsGoals       map[uuid.UUID]core.SavingsGoal
	dpsTransfers       map[uuid.UUID]core.DPSTransfer
}

func NewStore() *Store {
	return &Store{
		now:                time.Now,
		users:              make(map[uuid.UUID]core.User),
		accounts:           make(map[uuid.UUID]core.Account),
		transactions:       make(map[uuid.UUID]core.Transaction),
		categories:         make(map[uuid.UUID]core.Category),
		purchases:          make(map[uuid.UUID]core.Purchase),
		purchaseCategories: make(map[uuid.UUID]core.PurchaseCategory),
		lendBorrows:        make(map[uuid.UUID]core.LendBorrow),
		returns:            make(map[uuid.UUID]core.LendBorrowReturn),
		donationSavings:    make(map[uuid.UUID]core.DonationSavingRecord),
		savingsGoals:       make(map[uuid.UUID]core.SavingsGoal),
		dpsTransfers:       make(map[uuid.UUID]core.DPSTransfer),
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Ping(context.Context) error { return nil }

// owned returns the user's rows of m sorted by less.
func owned[T any](m map[uuid.UUID]T, keep func(T) bool, less func(a, b T) int) []T {
	out := []T{}
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortStableFunc(out, less)
	return out
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return core.User{}, fmt.Errorf("create user %s: %w", email, core.ErrConflict)
		}
	}
	u := core.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: s.now().UTC()}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
}

func (s *Store) ListUserIDs(context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := owned(s.users, func(core.User) bool { return true }, func(a, b core.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

func newestFirst(a, b time.Time) int {
	return b.Compare(a)
}
