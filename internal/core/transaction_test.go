package core

import (
	"errors"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:       "x",
		Date:     NewDate(2024, 5, 10),
		Payer:    PayerShared,
		Category: "Groceries",
		Memo:     "coffee",
		Amount:   Money{Yen: 450},
		Kind:     Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(tx *Transaction)
		want error
	}{
		{"zero amount", func(tx *Transaction) { tx.Amount.Yen = 0 }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount.Yen = -5 }, ErrInvalidAmount},
		{"empty memo", func(tx *Transaction) { tx.Memo = "" }, ErrEmptyMemo},
		{"whitespace memo", func(tx *Transaction) { tx.Memo = "  \t " }, ErrEmptyMemo},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mut(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 4, 0, 0, time.UTC)

	tx, err := Normalize(Input{Memo: "coffee", Amount: 450}, now)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected a fresh id")
	}
	if tx.Date.String() != "2024-05-10" {
		t.Fatalf("date = %s, want today", tx.Date)
	}
	if tx.Payer != PayerShared {
		t.Fatalf("payer = %s, want shared", tx.Payer)
	}
	if tx.Category != DefaultCategory {
		t.Fatalf("category = %s, want %s", tx.Category, DefaultCategory)
	}
	if tx.Kind != Expense {
		t.Fatalf("kind = %s, want expense", tx.Kind)
	}
}

func TestNormalizeRejects(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{"zero amount", Input{Memo: "x", Amount: 0}, ErrInvalidAmount},
		{"negative amount", Input{Memo: "x", Amount: -5}, ErrInvalidAmount},
		{"empty memo", Input{Memo: "   ", Amount: 100}, ErrEmptyMemo},
		{"garbage kind", Input{Memo: "x", Amount: 100, Kind: "loan"}, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.in, now); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNormalizeMalformedDateFallsBackToToday(t *testing.T) {
	now := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	tx, err := Normalize(Input{Date: "10/05/2024", Memo: "coffee", Amount: 450}, now)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if tx.Date.String() != "2024-02-29" {
		t.Fatalf("date = %s, want 2024-02-29", tx.Date)
	}
}

func TestNormalizeOutOfSetPayerDefaultsToShared(t *testing.T) {
	tx, err := Normalize(Input{Memo: "x", Amount: 1, Payer: "grandma"}, time.Now())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if tx.Payer != PayerShared {
		t.Fatalf("payer = %s, want shared", tx.Payer)
	}
}

func TestIdentityKeyWhitespaceInsensitive(t *testing.T) {
	a := Transaction{Date: NewDate(2024, 5, 10), Memo: "morning  coffee", Amount: Money{Yen: 450}, Kind: Expense}
	b := Transaction{Date: NewDate(2024, 5, 10), Memo: "  morning coffee ", Amount: Money{Yen: 450}, Kind: Expense}
	if a.IdentityKey() != b.IdentityKey() {
		t.Fatalf("keys differ: %q vs %q", a.IdentityKey(), b.IdentityKey())
	}

	c := a
	c.Kind = Income
	if a.IdentityKey() == c.IdentityKey() {
		t.Fatal("kind must contribute to the identity key")
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2024-02-30"); err == nil {
		t.Fatal("expected error for impossible date")
	}
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("leap day should parse: %v", err)
	}
	if d.MonthKey() != "2024-02" {
		t.Fatalf("month key = %s", d.MonthKey())
	}
}
