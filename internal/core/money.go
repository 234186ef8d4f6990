// Package core defines the household-ledger domain model.
//
// This file contains yen parsing and formatting. Amounts are whole yen:
// JPY has no subdivision, so there is no fractional unit to carry.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseYen converts a user-supplied amount string to whole yen.
//
// It tolerates a leading currency mark and thousands separators but rejects
// signs, decimals and anything non-numeric. Zero and negative amounts are
// invalid at every entry point.
//
// Examples:
//
//	ParseYen("450")    -> 450, nil
//	ParseYen("1,200")  -> 1200, nil
//	ParseYen("¥3,980") -> 3980, nil
//	ParseYen("-5")     -> 0, ErrInvalidAmount
func ParseYen(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// MarshalJSON renders Money as a bare yen number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Yen, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Yen = v
	return nil
}

// String renders the amount with thousands separators for display.
// Use Yen directly for calculations.
func (m Money) String() string {
	s := strconv.FormatInt(m.Yen, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
