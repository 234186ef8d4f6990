package memory

import (
	"context"
	"testing"

	"kakeibo/internal/core"
)

func validTx(memo string) core.Transaction {
	d, _ := core.ParseDate("2024-05-10")
	return core.Transaction{
		ID:       "tx-" + memo,
		Date:     d,
		Payer:    core.PayerShared,
		Category: "Groceries",
		Memo:     memo,
		Amount:   core.Money{Yen: 100},
		Kind:     core.Expense,
	}
}

func TestAppendAndRows(t *testing.T) {
	s := New()
	ref, err := s.Append(context.Background(), validTx("milk"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0].Memo != "milk" {
		t.Errorf("rows = %v", rows)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("invalid transaction must be rejected")
	}
	if len(s.Rows()) != 0 {
		t.Fatal("rejected row must not be stored")
	}
}

func TestReplace(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), validTx("old")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Replace(context.Background(), []core.Transaction{validTx("a"), validTx("b")}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	rows := s.Rows()
	if len(rows) != 2 || rows[0].Memo != "a" || rows[1].Memo != "b" {
		t.Errorf("rows = %v", rows)
	}

	if err := s.Replace(context.Background(), nil); err != nil {
		t.Fatalf("replace empty: %v", err)
	}
	if len(s.Rows()) != 0 {
		t.Error("replace with empty snapshot should clear the mirror")
	}
}
