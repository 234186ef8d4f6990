package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"

	PayerA      Payer = "A"
	PayerB      Payer = "B"
	PayerShared Payer = "shared"

	// DefaultCategory is assigned when a record arrives without one.
	DefaultCategory = "Uncategorized"

	// DateLayout is the only accepted calendar form: YYYY-MM-DD, no timezone.
	DateLayout = "2006-01-02"
)

type (
	Kind  string
	Payer string

	Date struct {
		time.Time
	}

	Money struct {
		Yen int64
	}

	// Transaction is the sole persisted entity: a single dated income or
	// expense record. ID is assigned at creation and never mutated.
	Transaction struct {
		ID       string `json:"id"`
		Date     Date   `json:"date"`
		Payer    Payer  `json:"payer"`
		Category string `json:"category"`
		Memo     string `json:"memo"`
		Amount   Money  `json:"amount"`
		Kind     Kind   `json:"kind"`
	}

	// Input carries unvalidated candidate fields, as typed by the user or
	// proposed by receipt extraction. Normalize is the only way from an
	// Input to a Transaction.
	Input struct {
		Date     string
		Payer    string
		Category string
		Memo     string
		Amount   int64
		Kind     string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyMemo     = errors.New("empty memo")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid kind")
)

func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

func (p Payer) Valid() bool {
	return p == PayerA || p == PayerB || p == PayerShared
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM reporting-month key for this date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Yen <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate applies the storage gate. Records failing it never reach the
// ledger, whatever their origin.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Memo) == "" {
		return ErrEmptyMemo
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// NormalizeMemo collapses whitespace runs to a single space and trims.
func NormalizeMemo(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IdentityKey derives the duplicate-detection key (date, normalized memo,
// amount, kind). It is never a storage identity: two transactions may share
// a key and both are kept.
func (t Transaction) IdentityKey() string {
	return strings.Join([]string{
		t.Date.String(),
		NormalizeMemo(t.Memo),
		strconv.FormatInt(t.Amount.Yen, 10),
		string(t.Kind),
	}, "\x1f")
}

// Normalize turns an Input into a valid Transaction or reports why it can't.
// Defaulting is uniform for manual entry and extracted candidates: payer
// falls back to shared, category to DefaultCategory, kind to expense, and a
// missing or malformed date to today. A fresh ID is assigned here.
func Normalize(in Input, now time.Time) (Transaction, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		date = Date{Time: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
	}

	payer := Payer(strings.TrimSpace(in.Payer))
	if !payer.Valid() {
		payer = PayerShared
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}

	kind := Kind(strings.TrimSpace(in.Kind))
	if in.Kind == "" {
		kind = Expense
	}

	t := Transaction{
		ID:       uuid.NewString(),
		Date:     date,
		Payer:    payer,
		Category: category,
		Memo:     strings.TrimSpace(in.Memo),
		Amount:   Money{Yen: in.Amount},
		Kind:     kind,
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}
