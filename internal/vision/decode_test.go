package vision

import (
	"strings"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `[{"memo":"a"}]`, `[{"memo":"a"}]`},
		{"fenced", "```json\n[{\"memo\":\"a\"}]\n```", `[{"memo":"a"}]`},
		{"fence no lang", "```\n[1]\n```", `[1]`},
		{"prose around", "Here you go:\n[1, 2]\nHope that helps!", `[1, 2]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanModelJSON(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeItems(t *testing.T) {
	raw := `[
		{"date":"2024-05-10","memo":"milk","amount":238,"category":"Groceries","kind":"expense"},
		{"memo":"eggs","amount":"1,980"},
		{"memo":"noise","amount":true},
		{"date":12345,"memo":"bread","amount":150.4}
	]`
	items, err := decodeItems(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	if items[0].Amount != 238 || items[0].Date != "2024-05-10" {
		t.Fatalf("item 0 mismatch: %+v", items[0])
	}
	if items[1].Amount != 1980 {
		t.Fatalf("numeric string amount: got %d, want 1980", items[1].Amount)
	}
	if items[2].Amount != 0 {
		t.Fatalf("bool amount should decode to 0, got %d", items[2].Amount)
	}
	if items[3].Date != "" || items[3].Amount != 150 {
		t.Fatalf("item 3 mismatch: %+v", items[3])
	}
}

func TestDecodeItemsWrappedObject(t *testing.T) {
	items, err := decodeItems(`{"items":[{"memo":"milk","amount":238}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Memo != "milk" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestDecodeItemsRejectsNonArray(t *testing.T) {
	if _, err := decodeItems(`"just a string"`); err == nil {
		t.Fatal("expected error for non-array payload")
	}
	if _, err := decodeItems(`not json at all`); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
}

func TestBuildExtractionPromptMentionsCategories(t *testing.T) {
	p := buildExtractionPrompt([]string{"Groceries", "Dining"})
	if !strings.Contains(p, "Groceries") || !strings.Contains(p, "Dining") {
		t.Fatal("prompt must list the provided categories")
	}
	if !strings.Contains(p, "STRICT JSON") {
		t.Fatal("prompt must demand strict JSON")
	}
}
