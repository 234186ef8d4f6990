package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// currentMonth formats a time as the ledger month key.
func currentMonth(now time.Time) string {
	return now.Format("2006-01")
}

// monthParam reads the month query parameter, falling back to the current
// month when absent or malformed.
func monthParam(query url.Values, now time.Time) string {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return currentMonth(now)
	}
	if _, err := time.Parse("2006-01", v); err != nil {
		return currentMonth(now)
	}
	return v
}

// sanitizeInput strips control characters that could break log lines or
// spreadsheet rows.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

// RequestBodyParser reads a request body once and serves values from either
// JSON or form encoding, whichever the client sent. HTMX posts forms, API
// clients post JSON.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(r.Body)
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value regardless of the body encoding.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetBool interprets common truthy spellings.
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// transactionInput assembles a core.Input from a parsed body.
func transactionInput(p *RequestBodyParser) (core.Input, *HTMXResponseBuilder) {
	amount, err := core.ParseYen(p.Get("amount"))
	if err != nil {
		return core.Input{}, BadRequestError("amount must be a positive whole number of yen")
	}

	return core.Input{
		Date:     p.Get("date"),
		Payer:    p.Get("payer"),
		Category: p.Get("category"),
		Memo:     p.Get("memo"),
		Amount:   amount,
		Kind:     p.Get("kind"),
	}, nil
}
