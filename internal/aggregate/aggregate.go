// Package aggregate derives every displayed view from a ledger snapshot.
//
// All functions are pure: same snapshot and parameters, same output. Ledger
// sizes in scope are small, so views are recomputed on every read instead of
// cached and invalidated.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"kakeibo/internal/core"
)

type (
	// CategoryAmount is an expense total for one category within a month.
	CategoryAmount struct {
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
	}

	// TrendPoint holds one month's expense and income totals, summed
	// independently, never netted.
	TrendPoint struct {
		Month   string     `json:"month"`
		Expense core.Money `json:"expense"`
		Income  core.Money `json:"income"`
	}

	// DayProgress is one row of the dense day-by-day budget view.
	DayProgress struct {
		Day        int        `json:"day"`
		Expense    core.Money `json:"expense"`
		Income     core.Money `json:"income"`
		CumExpense core.Money `json:"cumExpense"`
		CumIncome  core.Money `json:"cumIncome"`
		CumBudget  float64    `json:"cumBudget"`
	}
)

// ByMonth groups transactions by the YYYY-MM prefix of their date. The key
// set is exactly the distinct months present in the snapshot.
func ByMonth(txs []core.Transaction) map[string][]core.Transaction {
	out := make(map[string][]core.Transaction)
	for _, tx := range txs {
		k := tx.Date.MonthKey()
		out[k] = append(out[k], tx)
	}
	return out
}

// CategoryBreakdown sums expense amounts per category for the given month.
// Categories with no matching transactions are omitted, not zero-filled.
// Ordered by amount descending, then name, so output is deterministic.
func CategoryBreakdown(txs []core.Transaction, month string) []CategoryAmount {
	sums := make(map[string]int64)
	for _, tx := range txs {
		if tx.Kind != core.Expense || tx.Date.MonthKey() != month {
			continue
		}
		sums[tx.Category] += tx.Amount.Yen
	}

	out := make([]CategoryAmount, 0, len(sums))
	for name, yen := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: core.Money{Yen: yen}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Yen != out[j].Amount.Yen {
			return out[i].Amount.Yen > out[j].Amount.Yen
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthlyTrend returns expense and income totals for every month present,
// chronologically ascending. Callers wanting a bounded window truncate to
// the most recent N points.
func MonthlyTrend(txs []core.Transaction) []TrendPoint {
	type sums struct{ expense, income int64 }
	byMonth := make(map[string]*sums)
	for _, tx := range txs {
		k := tx.Date.MonthKey()
		s, ok := byMonth[k]
		if !ok {
			s = &sums{}
			byMonth[k] = s
		}
		switch tx.Kind {
		case core.Expense:
			s.expense += tx.Amount.Yen
		case core.Income:
			s.income += tx.Amount.Yen
		}
	}

	months := make([]string, 0, len(byMonth))
	for k := range byMonth {
		months = append(months, k)
	}
	sort.Strings(months)

	out := make([]TrendPoint, 0, len(months))
	for _, m := range months {
		s := byMonth[m]
		out = append(out, TrendPoint{
			Month:   m,
			Expense: core.Money{Yen: s.expense},
			Income:  core.Money{Yen: s.income},
		})
	}
	return out
}

// RecentTrend truncates MonthlyTrend output to its last n points.
func RecentTrend(txs []core.Transaction, n int) []TrendPoint {
	trend := MonthlyTrend(txs)
	if len(trend) > n {
		trend = trend[len(trend)-n:]
	}
	return trend
}

// DailyProgress computes the dense day-by-day view for one month: per-day
// expense and income sums, running cumulatives, and the linear budget
// allocation d × monthlyBudget/daysInMonth. Every day 1..N is present even
// with no transactions; N follows the real calendar, leap years included.
func DailyProgress(txs []core.Transaction, month string, monthlyBudget int64) ([]DayProgress, error) {
	start, err := time.Parse("2006-01", strings.TrimSpace(month))
	if err != nil {
		return nil, fmt.Errorf("daily progress: invalid month %q: %w", month, core.ErrInvalidDate)
	}
	days := time.Date(start.Year(), start.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()

	expenseByDay := make([]int64, days+1)
	incomeByDay := make([]int64, days+1)
	for _, tx := range txs {
		if tx.Date.MonthKey() != month {
			continue
		}
		d := tx.Date.Day()
		switch tx.Kind {
		case core.Expense:
			expenseByDay[d] += tx.Amount.Yen
		case core.Income:
			incomeByDay[d] += tx.Amount.Yen
		}
	}

	perDay := float64(monthlyBudget) / float64(days)
	out := make([]DayProgress, 0, days)
	var cumExpense, cumIncome int64
	for d := 1; d <= days; d++ {
		cumExpense += expenseByDay[d]
		cumIncome += incomeByDay[d]
		out = append(out, DayProgress{
			Day:        d,
			Expense:    core.Money{Yen: expenseByDay[d]},
			Income:     core.Money{Yen: incomeByDay[d]},
			CumExpense: core.Money{Yen: cumExpense},
			CumIncome:  core.Money{Yen: cumIncome},
			CumBudget:  float64(d) * perDay,
		})
	}
	return out, nil
}

// ExpenseTotal sums expense amounts for the given month.
func ExpenseTotal(txs []core.Transaction, month string) core.Money {
	var yen int64
	for _, tx := range txs {
		if tx.Kind == core.Expense && tx.Date.MonthKey() == month {
			yen += tx.Amount.Yen
		}
	}
	return core.Money{Yen: yen}
}

// IncomeTotal sums income amounts for the given month.
func IncomeTotal(txs []core.Transaction, month string) core.Money {
	var yen int64
	for _, tx := range txs {
		if tx.Kind == core.Income && tx.Date.MonthKey() == month {
			yen += tx.Amount.Yen
		}
	}
	return core.Money{Yen: yen}
}

// NetForMonth is income minus expense for the month. The sign is reported
// as-is; qualitative banding belongs to the presentation layer.
func NetForMonth(txs []core.Transaction, month string) int64 {
	return IncomeTotal(txs, month).Yen - ExpenseTotal(txs, month).Yen
}
