package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kakeibo/internal/core"
)

func TestDecodeReportWellFormed(t *testing.T) {
	r := decodeReport(`{"summary":"Tight month.","insights":["food up"],"warnings":[],"suggestions":["cook more"]}`)
	if r.Summary != "Tight month." {
		t.Fatalf("summary = %q", r.Summary)
	}
	if len(r.Insights) != 1 || len(r.Suggestions) != 1 {
		t.Fatalf("arrays lost: %+v", r)
	}
	if r.Warnings == nil {
		t.Fatal("warnings must be empty, not nil")
	}
}

func TestDecodeReportDefaultsMissingFields(t *testing.T) {
	r := decodeReport(`{"summary":"ok"}`)
	if r.Insights == nil || r.Warnings == nil || r.Suggestions == nil {
		t.Fatalf("missing arrays must default to empty: %+v", r)
	}
}

func TestDecodeReportFencedPayload(t *testing.T) {
	r := decodeReport("```json\n{\"summary\":\"ok\",\"insights\":[]}\n```")
	if r.Summary != "ok" {
		t.Fatalf("summary = %q", r.Summary)
	}
}

func TestDecodeReportNonJSONFallsBack(t *testing.T) {
	r := decodeReport("You spent a lot on dining this month.")
	if !strings.Contains(r.Summary, "dining") {
		t.Fatalf("prose payload should become the summary, got %q", r.Summary)
	}
	if r.Insights == nil || r.Warnings == nil || r.Suggestions == nil {
		t.Fatal("arrays must default to empty")
	}
}

func TestDecodeReportEmptySummaryGetsFallback(t *testing.T) {
	r := decodeReport(`{"summary":"  ","insights":["a"]}`)
	if r.Summary != "No summary available." {
		t.Fatalf("summary = %q", r.Summary)
	}
}

type countingSummarizer struct {
	calls int
	err   error
}

func (c *countingSummarizer) Summarize(_ context.Context, month string, _ []core.Transaction) (Report, error) {
	c.calls++
	if c.err != nil {
		return Report{}, c.err
	}
	return Report{Summary: "report for " + month}, nil
}

func TestServiceCachesPerRevision(t *testing.T) {
	ctx := context.Background()
	fake := &countingSummarizer{}
	svc := NewService(fake)

	if _, err := svc.MonthReport(ctx, "2024-05", 3, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.MonthReport(ctx, "2024-05", 3, nil); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("collaborator called %d times, want 1 (cached)", fake.calls)
	}

	// A ledger mutation invalidates by changing the revision.
	if _, err := svc.MonthReport(ctx, "2024-05", 4, nil); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("collaborator called %d times, want 2", fake.calls)
	}
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	fake := &countingSummarizer{err: ErrSummarizationFailed}
	svc := NewService(fake)

	if _, err := svc.MonthReport(ctx, "2024-05", 1, nil); !errors.Is(err, ErrSummarizationFailed) {
		t.Fatalf("got %v, want ErrSummarizationFailed", err)
	}
	fake.err = nil
	if _, err := svc.MonthReport(ctx, "2024-05", 1, nil); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("collaborator called %d times, want 2", fake.calls)
	}
}

func TestBuildSummaryPromptCarriesTransactions(t *testing.T) {
	d, _ := core.ParseDate("2024-05-10")
	txs := []core.Transaction{{Date: d, Category: "Dining", Memo: "ramen", Amount: core.Money{Yen: 980}, Kind: core.Expense}}
	p, err := buildSummaryPrompt("2024-05", txs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{"2024-05", "ramen", "980", "STRICT JSON"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
