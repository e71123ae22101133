package core

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestValidCurrency(t *testing.T) {
	for _, c := range []string{"USD", "EUR", "BDT"} {
		if !ValidCurrency(c) {
			t.Fatalf("%s should be valid", c)
		}
	}
	for _, c := range []string{"", "usd", "US", "EURO"} {
		if ValidCurrency(c) {
			t.Fatalf("%q should be invalid", c)
		}
	}
	if NormalizeCurrency(" eur ") != "EUR" {
		t.Fatalf("normalize failed")
	}
}

func TestPercent(t *testing.T) {
	if Percent(decimal.NewFromInt(1), decimal.Zero) != 0 {
		t.Fatalf("expected 0 for zero total")
	}
	if got := Percent(decimal.NewFromInt(25), decimal.NewFromInt(200)); got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}
}

func TestOptionalJSON(t *testing.T) {
	var p PurchasePatch
	if err := json.Unmarshal([]byte(`{"account_id":null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.AccountID.Set || p.AccountID.Value != nil {
		t.Fatalf("explicit null should clear: %+v", p.AccountID)
	}
	if p.TransactionID.Set {
		t.Fatalf("absent field must stay unset")
	}

	id := uuid.New()
	if err := json.Unmarshal([]byte(`{"account_id":"`+id.String()+`"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.AccountID.Value == nil || *p.AccountID.Value != id {
		t.Fatalf("expected %s, got %+v", id, p.AccountID)
	}
}
