package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr string
	}{
		{"inline wins", Config{CredentialsJSON: ` {"type":"service_account"} `, CredentialsFile: "/nope"}, `{"type":"service_account"}`, ""},
		{"missing file", Config{CredentialsFile: "/non/existent/sa.json"}, "", "read service account file"},
		{"nothing configured", Config{}, "", "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("loadCredentials() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadCredentials() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("loadCredentials() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2025, "2025 Transactions"},
		{"2024 Transactions", 2025, "2024 Transactions"},
		{"  Ledger ", 2026, "2026 Ledger"},
		{"", 2025, ""},
		{"12345", 2025, "2025 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestColumnValues(t *testing.T) {
	values := [][]any{{"TX-1"}, {}, {"  "}, {"# comment"}, {" TX-2 "}, {"TX-1"}, {"TX-3", "extra"}}
	got := columnValues(values)
	want := []string{"TX-1", "TX-2", "TX-3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("columnValues() = %v, want %v", got, want)
	}
}

func TestClient_NilService(t *testing.T) {
	c := NewWithService(nil, "sheet-id", "")
	if c.sheetBase != "Transactions" {
		t.Errorf("default sheet base = %q", c.sheetBase)
	}
	if _, err := c.Append(context.Background(), sampleTransaction()); err == nil {
		t.Error("Append() with nil service should fail")
	}
	if _, err := c.HasRef(context.Background(), 2025, "TX-1"); err == nil {
		t.Error("HasRef() with nil service should fail")
	}
}

func TestClient_AppendRequiresRef(t *testing.T) {
	c := NewWithService(nil, "sheet-id", "Transactions")
	tx := sampleTransaction()
	tx.Ref = ""
	if _, err := c.Append(context.Background(), tx); err == nil {
		t.Fatal("Append() without ref should fail")
	}
}

// fakeSheets serves the two Values endpoints the mirror uses.
type fakeSheets struct {
	gets    atomic.Int32
	appends atomic.Int32
	refs    [][]any
	body    map[string]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":append"):
		f.appends.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&f.body)
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"'2025 Transactions'!A7:H7","updatedRows":1}}`))
	case r.Method == http.MethodGet:
		f.gets.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.refs})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sheet-id", "Transactions")
}

func TestClient_Append(t *testing.T) {
	fake := &fakeSheets{}
	c := newFakeClient(t, fake)

	ref, err := c.Append(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "'2025 Transactions'!A7:H7" {
		t.Errorf("Append() ref = %q", ref)
	}
	rows, _ := fake.body["values"].([]any)
	if len(rows) != 1 {
		t.Fatalf("appended rows = %v", fake.body["values"])
	}
	row := rows[0].([]any)
	if row[0] != "TX-20250301-ABCDEF" || row[5] != "-12.50" {
		t.Errorf("appended row = %v", row)
	}
}

func TestClient_HasRefCachesColumn(t *testing.T) {
	fake := &fakeSheets{refs: [][]any{{"TX-20250101-AAAAAA"}, {"TX-20250102-BBBBBB"}}}
	c := newFakeClient(t, fake)
	ctx := context.Background()

	ok, err := c.HasRef(ctx, 2025, "TX-20250102-BBBBBB")
	if err != nil || !ok {
		t.Fatalf("HasRef() = %v, %v; want true", ok, err)
	}
	ok, err = c.HasRef(ctx, 2025, "TX-20250301-ABCDEF")
	if err != nil || ok {
		t.Fatalf("HasRef() = %v, %v; want false", ok, err)
	}
	if got := fake.gets.Load(); got != 1 {
		t.Errorf("column reads = %d, want 1", got)
	}

	if _, err := c.Append(ctx, sampleTransaction()); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	ok, _ = c.HasRef(ctx, 2025, "TX-20250301-ABCDEF")
	if !ok {
		t.Error("appended ref should be visible through the cache")
	}

	c.InvalidateRefCache()
	if _, err := c.HasRef(ctx, 2025, "TX-20250101-AAAAAA"); err != nil {
		t.Fatalf("HasRef() error = %v", err)
	}
	if got := fake.gets.Load(); got != 2 {
		t.Errorf("column reads after invalidate = %d, want 2", got)
	}
}

func sampleTransaction() core.Transaction {
	return core.Transaction{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		AccountID:   uuid.New(),
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("12.5"),
		Description: "Groceries",
		Category:    "Food",
		Date:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Ref:         "TX-20250301-ABCDEF",
	}
}
