package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultRefCacheTTL = 5 * time.Minute

// Config selects the spreadsheet and credentials of the mirror.
type Config struct {
	SpreadsheetID string
	// SheetName is the base name; rows go to "<year> <SheetName>".
	SheetName string
	// Service account credentials, inline JSON or a file path.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu                 sync.Mutex
	refCache           map[string]map[string]bool
	cacheExpiresAt     map[string]time.Time
	cacheValidDuration time.Duration
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Transactions"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          sheetBase,
		refCache:           make(map[string]map[string]bool),
		cacheExpiresAt:     make(map[string]time.Time),
		cacheValidDuration: defaultRefCacheTTL,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append writes t below the last row of its year's sheet and returns the
// updated A1 range.
func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	if t.Ref == "" {
		return "", fmt.Errorf("transaction %s has no ref: %w", t.ID, core.ErrValidation)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, t.Date.UTC().Year())
	rng := fmt.Sprintf("'%s'!A:H", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(t)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	c.mu.Lock()
	if refs, ok := c.refCache[sheet]; ok {
		refs[t.Ref] = true
	}
	c.mu.Unlock()

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// HasRef reports whether ref appears in column A of the year's sheet. The
// column is cached for cacheValidDuration.
func (c *Client) HasRef(ctx context.Context, year int, ref string) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, year)

	c.mu.Lock()
	refs, cached := c.refCache[sheet]
	valid := cached && time.Now().Before(c.cacheExpiresAt[sheet])
	hit := valid && refs[ref]
	c.mu.Unlock()
	if valid {
		return hit, nil
	}

	col, err := c.readCol(ctx, sheet, "A2:A")
	if err != nil {
		return false, err
	}
	refs = make(map[string]bool, len(col))
	for _, v := range col {
		refs[v] = true
	}

	c.mu.Lock()
	c.refCache[sheet] = refs
	c.cacheExpiresAt[sheet] = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return refs[ref], nil
}

// InvalidateRefCache forgets every cached ref column.
func (c *Client) InvalidateRefCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refCache = make(map[string]map[string]bool)
	c.cacheExpiresAt = make(map[string]time.Time)
}

func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	rng := fmt.Sprintf("'%s'!%s", sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return columnValues(resp.Values), nil
}

// columnValues returns the trimmed first cell of each row, skipping blanks
// and comments and removing duplicates while preserving order.
func columnValues(values [][]any) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
