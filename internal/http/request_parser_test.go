package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid", `{"name":"rent"}`, "rent", false},
		{"empty body", ``, "", true},
		{"malformed", `{"name":`, "", true},
		{"unknown field", `{"name":"rent","nmae":"x"}`, "", true},
		{"trailing value", `{"name":"a"}{"name":"b"}`, "", true},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got payload
			err := decodeJSON(httptest.NewRecorder(), req, &got)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("decodeJSON() error = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON() error = %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", "0b8f6d4e-7d9c-4a41-9a53-6f1f1d2c3b4a", false},
		{"garbage", "abc", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.value)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, err := pathID(req, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("pathID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != tt.value {
				t.Errorf("pathID() = %s, want %s", id, tt.value)
			}
		})
	}
}

func TestCurrencyParam(t *testing.T) {
	tests := []struct {
		query   string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"?currency=eur", "EUR", false},
		{"?currency=%20usd%20", "USD", false},
		{"?currency=euro", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			got, err := currencyParam(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("currencyParam() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("currencyParam() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":       "hello",
		"a\x00b\x07c":     "abc",
		"line1\nline2\t!": "line1\nline2\t!",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", errBadRequest), http.StatusBadRequest},
		{fmt.Errorf("load: %w", core.ErrNotAuthenticated), http.StatusUnauthorized},
		{fmt.Errorf("get: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: name is required", core.ErrValidation), http.StatusUnprocessableEntity},
		{core.ErrReturnExceedsBalance, http.StatusUnprocessableEntity},
		{core.ErrDPSNotConfigured, http.StatusUnprocessableEntity},
		{fmt.Errorf("create: %w", core.ErrConflict), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
