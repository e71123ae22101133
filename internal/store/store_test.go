package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []core.ChangeEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev core.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) count(c core.Collection, op core.ChangeOp) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, ev := range n.events {
		if ev.Collection == c && ev.Op == op {
			total++
		}
	}
	return total
}

func newTestStore(t *testing.T) (*Store, *memory.Store, *recordingNotifier) {
	t.Helper()
	mem := memory.NewStore()
	u, err := mem.CreateUser(context.Background(), "me@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	n := &recordingNotifier{}
	s := New(mem, Options{Notifier: n, DefaultCurrency: "EUR"})
	s.SignIn(u.ID)
	return s, mem, n
}

func addAccount(t *testing.T, s *Store, name string, balance int64) core.Account {
	t.Helper()
	a, err := s.AddAccount(context.Background(), core.AccountInput{
		Name: name, Type: core.Checking, InitialBalance: decimal.NewFromInt(balance), Currency: "USD",
	})
	if err != nil {
		t.Fatalf("add account %s: %v", name, err)
	}
	return a
}

func balanceOf(s *Store, id uuid.UUID) decimal.Decimal {
	for _, a := range s.Snapshot().Accounts {
		if a.ID == id {
			return a.CalculatedBalance
		}
	}
	return decimal.Decimal{}
}

func TestRequiresSignIn(t *testing.T) {
	s := New(memory.NewStore(), Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"fetch", func() error { return s.FetchAccounts(ctx) }},
		{"fetch all", func() error { return s.FetchAll(ctx) }},
		{"add", func() error {
			_, err := s.AddAccount(ctx, core.AccountInput{Name: "x", Type: core.Cash, Currency: "USD"})
			return err
		}},
		{"invalid input still reports auth", func() error {
			_, err := s.AddAccount(ctx, core.AccountInput{})
			return err
		}},
		{"transfer", func() error {
			_, err := s.Transfer(ctx, core.TransferInput{FromAccountID: uuid.New(), ToAccountID: uuid.New(), FromAmount: decimal.NewFromInt(1)})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, core.ErrNotAuthenticated) {
				t.Fatalf("error = %v, want ErrNotAuthenticated", err)
			}
			if s.Err() == "" {
				t.Fatal("error string was not recorded")
			}
		})
	}
}

func TestErrIsClearedBySuccess(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, core.AccountInput{Name: "", Type: core.Cash, Currency: "USD"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.Err() == "" {
		t.Fatal("validation error not recorded")
	}
	addAccount(t, s, "Wallet", 0)
	if s.Err() != "" {
		t.Fatalf("Err() = %q after success", s.Err())
	}
	if s.Loading() {
		t.Fatal("Loading() true with nothing in flight")
	}
}

func TestTransferConservesBalance(t *testing.T) {
	tests := []struct {
		name     string
		rate     decimal.Decimal
		wantFrom string
		wantTo   string
	}{
		{"same currency", decimal.Zero, "70", "30"},
		{"converted", decimal.RequireFromString("0.5"), "70", "15"},
		{"credited leg rounded", decimal.RequireFromString("0.33333"), "70", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, n := newTestStore(t)
			ctx := context.Background()
			from := addAccount(t, s, "From", 100)
			to := addAccount(t, s, "To", 0)

			id, err := s.Transfer(ctx, core.TransferInput{
				FromAccountID: from.ID, ToAccountID: to.ID,
				FromAmount: decimal.NewFromInt(30), ExchangeRate: tt.rate,
			})
			if err != nil {
				t.Fatalf("transfer: %v", err)
			}
			if id == uuid.Nil {
				t.Fatal("transfer id is nil")
			}
			if got := balanceOf(s, from.ID); !got.Equal(decimal.RequireFromString(tt.wantFrom)) {
				t.Errorf("from balance = %s, want %s", got, tt.wantFrom)
			}
			if got := balanceOf(s, to.ID); !got.Equal(decimal.RequireFromString(tt.wantTo)) {
				t.Errorf("to balance = %s, want %s", got, tt.wantTo)
			}

			txs := s.Snapshot().Transactions
			if len(txs) != 2 {
				t.Fatalf("got %d transactions, want 2", len(txs))
			}
			for _, tx := range txs {
				if got, _ := core.TransferIDFromTags(tx.Tags); got != id {
					t.Errorf("leg %s carries transfer id %s, want %s", tx.ID, got, id)
				}
			}
			stats := s.DashboardStats(time.Now())
			if len(stats.ByCurrency) != 1 || !stats.ByCurrency[0].Monthly.Income.IsZero() || !stats.ByCurrency[0].Monthly.Expense.IsZero() {
				t.Errorf("transfer counted as income/expense: %+v", stats.ByCurrency)
			}
			if got := n.count(core.CollectionTransactions, core.OpCreated); got != 2 {
				t.Errorf("published %d transaction events, want 2", got)
			}

			if err := s.DeleteTransfer(ctx, id); err != nil {
				t.Fatalf("delete transfer: %v", err)
			}
			if len(s.Snapshot().Transactions) != 0 {
				t.Fatal("transfer legs survived delete")
			}
		})
	}
}

func TestTransferValidationAndAtomicity(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	from := addAccount(t, s, "From", 100)
	to := addAccount(t, s, "To", 0)

	tests := []struct {
		name   string
		in     core.TransferInput
		target error
	}{
		{"same account", core.TransferInput{FromAccountID: from.ID, ToAccountID: from.ID, FromAmount: decimal.NewFromInt(5)}, core.ErrSameAccount},
		{"missing destination", core.TransferInput{FromAccountID: from.ID, ToAccountID: uuid.New(), FromAmount: decimal.NewFromInt(5)}, core.ErrNotFound},
		{"amount rounds to zero", core.TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, FromAmount: decimal.RequireFromString("0.004")}, core.ErrValidation},
		{"negative rate", core.TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, FromAmount: decimal.NewFromInt(5), ExchangeRate: decimal.NewFromInt(-2)}, core.ErrValidation},
		{"credited amount rounds to zero", core.TransferInput{FromAccountID: from.ID, ToAccountID: to.ID,
			FromAmount: decimal.RequireFromString("0.01"), ExchangeRate: decimal.RequireFromString("0.1")}, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Transfer(ctx, tt.in); !errors.Is(err, tt.target) {
				t.Fatalf("Transfer() error = %v, want %v", err, tt.target)
			}
		})
	}

	if err := s.FetchTransactions(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(s.Snapshot().Transactions) != 0 {
		t.Fatal("failed transfer left a leg behind")
	}
	if err := s.DeleteTransfer(ctx, uuid.New()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete unknown transfer: %v", err)
	}
}

func TestTransferDPS(t *testing.T) {
	s, _, n := newTestStore(t)
	ctx := context.Background()
	checking := addAccount(t, s, "Checking", 500)
	savings := addAccount(t, s, "Savings", 0)

	in := core.DPSTransferInput{FromAccountID: checking.ID, Amount: decimal.NewFromInt(50)}
	if _, err := s.TransferDPS(ctx, in); !errors.Is(err, core.ErrDPSNotConfigured) {
		t.Fatalf("expected ErrDPSNotConfigured, got %v", err)
	}

	enabled := true
	if _, err := s.UpdateAccount(ctx, checking.ID, core.AccountPatch{HasDPS: &enabled, DPSSavingsAccount: core.Some(savings.ID)}); err != nil {
		t.Fatalf("enable dps: %v", err)
	}
	d, err := s.TransferDPS(ctx, in)
	if err != nil {
		t.Fatalf("dps transfer: %v", err)
	}
	if d.ToAccountID != savings.ID {
		t.Fatalf("dps funded %s, want %s", d.ToAccountID, savings.ID)
	}
	if got := n.count(core.CollectionTransactions, core.OpCreated); got != 2 {
		t.Fatalf("published %d created transaction events, want 2", got)
	}
	snap := s.Snapshot()
	if len(snap.DPSTransfers) != 1 || len(snap.Transactions) != 2 {
		t.Fatalf("snapshot has %d dps rows and %d transactions", len(snap.DPSTransfers), len(snap.Transactions))
	}
	if got := balanceOf(s, savings.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("savings balance = %s, want 50", got)
	}

	if _, err := s.UpdateAccount(ctx, checking.ID, core.AccountPatch{DPSSavingsAccount: core.Some(checking.ID)}); !errors.Is(err, core.ErrSameAccount) {
		t.Fatalf("self-funding link: %v", err)
	}

	if err := s.DeleteAccount(ctx, savings.ID); err != nil {
		t.Fatalf("delete savings: %v", err)
	}
	snap = s.Snapshot()
	if len(snap.DPSTransfers) != 0 {
		t.Fatal("dps audit rows survived account delete")
	}
	for _, a := range snap.Accounts {
		if a.ID == checking.ID && a.DPSEnabled() {
			t.Fatal("dps link survived account delete")
		}
	}
}

func TestTransferDPSRejectsSelfLink(t *testing.T) {
	s, mem, _ := newTestStore(t)
	ctx := context.Background()
	a := addAccount(t, s, "Checking", 100)

	// a link written behind the store's back
	enabled := true
	if _, err := mem.UpdateAccount(ctx, s.UserID(), a.ID, core.AccountPatch{HasDPS: &enabled, DPSSavingsAccount: core.Some(a.ID)}); err != nil {
		t.Fatalf("link account to itself: %v", err)
	}
	if _, err := s.TransferDPS(ctx, core.DPSTransferInput{FromAccountID: a.ID, Amount: decimal.NewFromInt(50)}); !errors.Is(err, core.ErrSameAccount) {
		t.Fatalf("TransferDPS() error = %v, want ErrSameAccount", err)
	}
	if err := s.FetchAll(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transactions) != 0 || len(snap.DPSTransfers) != 0 {
		t.Fatalf("rejected dps transfer wrote %d transactions and %d audit rows", len(snap.Transactions), len(snap.DPSTransfers))
	}
}

func TestLendBorrowReturns(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	lb, err := s.AddLendBorrow(ctx, core.LendBorrowInput{Type: core.Lend, PersonName: "Sam", Amount: decimal.NewFromInt(100), Currency: "USD"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	steps := []struct {
		amount     int64
		wantErr    error
		wantStatus core.LendBorrowStatus
	}{
		{40, nil, core.LendBorrowActive},
		{70, core.ErrReturnExceedsBalance, core.LendBorrowActive},
		{60, nil, core.LendBorrowSettled},
		{1, core.ErrConflict, core.LendBorrowSettled},
	}
	for i, st := range steps {
		_, err := s.RecordLendBorrowReturn(ctx, lb.ID, core.ReturnInput{Amount: decimal.NewFromInt(st.amount)})
		if !errors.Is(err, st.wantErr) {
			t.Fatalf("step %d: error = %v, want %v", i, err, st.wantErr)
		}
		if st.wantErr == nil {
			// Failed writes do not refresh, so only compare after successes.
			got := s.Snapshot().LendBorrows[0].Status
			if got != st.wantStatus {
				t.Fatalf("step %d: status = %s, want %s", i, got, st.wantStatus)
			}
		}
	}
	if n := len(s.Snapshot().LendBorrowReturns); n != 2 {
		t.Fatalf("got %d returns, want 2", n)
	}
	if _, err := s.SettleLendBorrow(ctx, lb.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("settling a settled record: %v", err)
	}
}

func TestRefreshLendBorrowStatuses(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	today := now.Add(-time.Hour)

	for _, due := range []*time.Time{&past, &today, nil} {
		if _, err := s.AddLendBorrow(ctx, core.LendBorrowInput{Type: core.Borrow, PersonName: "Kim", Amount: decimal.NewFromInt(10), Currency: "USD", DueDate: due}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	n, err := s.RefreshLendBorrowStatuses(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("refresh = %d, %v; want 1", n, err)
	}
	if got := s.LendBorrowAnalytics().OverdueCount; got != 1 {
		t.Fatalf("overdue count = %d, want 1", got)
	}
}

func TestSyncPurchaseCategories(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	food, err := s.AddCategory(ctx, core.CategoryInput{Name: "Food", Type: core.Expense, Color: "#ff0000"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if _, err := s.AddCategory(ctx, core.CategoryInput{Name: "Salary", Type: core.Income}); err != nil {
		t.Fatalf("add category: %v", err)
	}

	pcs := s.Snapshot().PurchaseCategories
	if len(pcs) != 1 {
		t.Fatalf("got %d purchase categories, want 1", len(pcs))
	}
	pc := pcs[0]
	if pc.CategoryName != food.Name || pc.CategoryColor != "#ff0000" || pc.Currency != "EUR" || !pc.MonthlyBudget.IsZero() {
		t.Fatalf("unexpected synced category: %+v", pc)
	}

	if _, err := s.AddCategory(ctx, core.CategoryInput{Name: "FOOD", Type: core.Expense}); err != nil {
		t.Fatalf("add category: %v", err)
	}
	if n := len(s.Snapshot().PurchaseCategories); n != 1 {
		t.Fatalf("case-insensitive duplicate created: %d rows", n)
	}

	if err := s.DeletePurchaseCategory(ctx, pc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	created, err := s.SyncPurchaseCategories(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(created) != 0 || len(s.Snapshot().PurchaseCategories) != 0 {
		t.Fatalf("tombstoned category was recreated: %v", created)
	}
}

type failingPurchaseCategories struct {
	*memory.Store
	allowed int
}

func (f *failingPurchaseCategories) CreatePurchaseCategory(ctx context.Context, userID uuid.UUID, in core.PurchaseCategoryInput) (core.PurchaseCategory, error) {
	if f.allowed == 0 {
		return core.PurchaseCategory{}, errors.New("disk full")
	}
	f.allowed--
	return f.Store.CreatePurchaseCategory(ctx, userID, in)
}

func TestSyncPurchaseCategoriesPartialFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	u, err := mem.CreateUser(ctx, "me@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, name := range []string{"Food", "Rent"} {
		if _, err := mem.CreateCategory(ctx, u.ID, core.CategoryInput{Name: name, Type: core.Expense}); err != nil {
			t.Fatalf("create category: %v", err)
		}
	}
	n := &recordingNotifier{}
	s := New(&failingPurchaseCategories{Store: mem, allowed: 1}, Options{Notifier: n})
	s.SignIn(u.ID)

	created, err := s.SyncPurchaseCategories(ctx)
	if err == nil {
		t.Fatal("expected the second insert to fail")
	}
	if len(created) != 1 {
		t.Fatalf("got %d created rows, want 1", len(created))
	}
	if got := n.count(core.CollectionPurchaseCategories, core.OpCreated); got != 1 {
		t.Errorf("published %d events, want 1", got)
	}
	if pcs := s.Snapshot().PurchaseCategories; len(pcs) != 1 || pcs[0].ID != created[0].ID {
		t.Errorf("snapshot purchase categories = %+v, want the committed row", pcs)
	}
	if s.Err() == "" {
		t.Error("failure not recorded in Err")
	}
}

func TestPurchaseBackingTransaction(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	acct := addAccount(t, s, "Card", 200)
	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	planned, err := s.AddPurchase(ctx, core.PurchaseInput{ItemName: "Desk", Price: decimal.NewFromInt(80), Currency: "USD", PurchaseDate: date, AccountID: &acct.ID})
	if err != nil {
		t.Fatalf("add planned: %v", err)
	}
	if planned.TransactionID != nil || len(s.Snapshot().Transactions) != 0 {
		t.Fatal("planned purchase created a transaction")
	}

	bought := core.Purchased
	updated, err := s.UpdatePurchase(ctx, planned.ID, core.PurchasePatch{Status: &bought})
	if err != nil {
		t.Fatalf("mark purchased: %v", err)
	}
	if updated.TransactionID == nil {
		t.Fatal("purchase was not linked to a transaction")
	}
	if got := balanceOf(s, acct.ID); !got.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("balance = %s, want 120", got)
	}

	if _, err := s.UpdatePurchase(ctx, planned.ID, core.PurchasePatch{Notes: ptr("again")}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if n := len(s.Snapshot().Transactions); n != 1 {
		t.Fatalf("got %d transactions after re-save, want 1", n)
	}

	direct, err := s.AddPurchase(ctx, core.PurchaseInput{ItemName: "Lamp", Price: decimal.NewFromInt(20), Currency: "USD", PurchaseDate: date, Status: core.Purchased, AccountID: &acct.ID})
	if err != nil {
		t.Fatalf("add purchased: %v", err)
	}
	if direct.TransactionID == nil {
		t.Fatal("purchased item has no transaction")
	}
	if got := balanceOf(s, acct.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s, want 100", got)
	}
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	s, _, n := newTestStore(t)
	n.err = errors.New("broker down")
	if _, err := s.AddAccount(context.Background(), core.AccountInput{Name: "A", Type: core.Cash, Currency: "USD"}); err != nil {
		t.Fatalf("add account: %v", err)
	}
	if n.count(core.CollectionAccounts, core.OpCreated) != 1 {
		t.Fatal("event was not attempted")
	}
	if s.Err() != "" {
		t.Fatalf("notifier failure leaked into Err(): %q", s.Err())
	}
}

func TestSignOutClearsSnapshot(t *testing.T) {
	s, _, _ := newTestStore(t)
	addAccount(t, s, "A", 1)
	s.SignOut()
	if s.UserID() != uuid.Nil || len(s.Snapshot().Accounts) != 0 {
		t.Fatal("sign out kept user data")
	}
}

// gatedBackend blocks the first ListAccounts call after it has read its rows.
type gatedBackend struct {
	*memory.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (g *gatedBackend) ListAccounts(ctx context.Context, userID uuid.UUID) ([]core.Account, error) {
	rows, err := g.Store.ListAccounts(ctx, userID)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.read)
		<-g.release
	}
	return rows, err
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	u, _ := mem.CreateUser(ctx, "me@example.com", "hash")
	gb := &gatedBackend{Store: mem, read: make(chan struct{}), release: make(chan struct{})}
	s := New(gb, Options{})
	s.SignIn(u.ID)

	done := make(chan error)
	go func() { done <- s.FetchAccounts(ctx) }()
	<-gb.read

	if _, err := mem.CreateAccount(ctx, u.ID, core.AccountInput{Name: "New", Type: core.Cash, Currency: "USD"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.FetchAccounts(ctx); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !s.Loading() {
		t.Fatal("Loading() false while the first fetch is blocked")
	}
	close(gb.release)
	if err := <-done; err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	if n := len(s.Snapshot().Accounts); n != 1 {
		t.Fatalf("stale response overwrote newer data: %d accounts", n)
	}
}

func TestRegistry(t *testing.T) {
	mem := memory.NewStore()
	r := NewRegistry(mem, Options{}, 2, time.Minute)
	a, b := uuid.New(), uuid.New()

	if r.For(a) != r.For(a) {
		t.Fatal("registry created two stores for one user")
	}
	if r.For(a) == r.For(b) {
		t.Fatal("users share a store")
	}
	if r.For(b).UserID() != b {
		t.Fatal("store is not signed in as its user")
	}
	first := r.For(a)
	r.Forget(a)
	if r.For(a) == first {
		t.Fatal("Forget kept the store")
	}
}

func ptr[T any](v T) *T { return &v }
