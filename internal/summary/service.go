package summary

import (
	"context"
	"fmt"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
)

// Service fronts a Summarizer with an LRU cache keyed by reporting month
// and ledger revision, so an unchanged month is never re-billed against the
// model. Failures are not cached.
type Service struct {
	summarizer Summarizer
	reports    *cache.LRUCache[Report]
}

func NewService(s Summarizer) *Service {
	return &Service{
		summarizer: s,
		reports:    cache.NewLRUCache[Report](32, 24*time.Hour),
	}
}

// MonthReport returns the cached report for (month, revision) or asks the
// collaborator for a fresh one.
func (s *Service) MonthReport(ctx context.Context, month string, revision int64, txs []core.Transaction) (Report, error) {
	key := fmt.Sprintf("%s@%d", month, revision)
	if r, ok := s.reports.Get(key); ok {
		return r, nil
	}

	r, err := s.summarizer.Summarize(ctx, month, txs)
	if err != nil {
		return Report{}, err
	}
	s.reports.Set(key, r)
	return r, nil
}
