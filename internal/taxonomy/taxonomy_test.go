package taxonomy

import (
	"testing"

	"kakeibo/internal/core"
)

func TestLoadSeed(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	seed := s.Seed()
	if len(seed) == 0 {
		t.Fatal("seed must not be empty")
	}
	found := false
	for _, c := range seed {
		if c == core.DefaultCategory {
			found = true
		}
	}
	if !found {
		t.Fatalf("seed must contain the fallback category %q", core.DefaultCategory)
	}
}

func TestEffectiveExtendsWithObservedCategories(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d, _ := core.ParseDate("2024-05-10")
	txs := []core.Transaction{
		{Date: d, Category: "Groceries", Memo: "m", Amount: core.Money{Yen: 1}, Kind: core.Expense},
		{Date: d, Category: "Cat cafe", Memo: "m", Amount: core.Money{Yen: 1}, Kind: core.Expense},
	}
	eff := s.Effective(txs)

	count := make(map[string]int)
	for _, c := range eff {
		count[c]++
	}
	if count["Groceries"] != 1 {
		t.Fatalf("seeded category must appear exactly once, got %d", count["Groceries"])
	}
	if count["Cat cafe"] != 1 {
		t.Fatal("observed category must extend the set")
	}
}
