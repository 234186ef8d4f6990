// Package summary asks a hosted language model for a natural-language
// reading of one reporting month. The collaborator's payload is untrusted:
// every field is defaulted rather than trusted to crash decoding, and a
// failure is surfaced verbatim with no automatic retry.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"kakeibo/internal/core"
)

// DefaultModel is the generation model used for monthly reports.
const DefaultModel = "gemini-2.0-flash"

var ErrSummarizationFailed = errors.New("summarization failed")

// Report is the decoded collaborator response. Absent arrays come back
// empty, never nil-panicking templates downstream.
type Report struct {
	Summary     string   `json:"summary"`
	Insights    []string `json:"insights"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// Summarizer is the port the HTTP layer depends on.
type Summarizer interface {
	Summarize(ctx context.Context, month string, txs []core.Transaction) (Report, error)
}

// Gemini implements Summarizer against the GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Summarize(ctx context.Context, month string, txs []core.Transaction) (Report, error) {
	prompt, err := buildSummaryPrompt(month, txs)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return Report{}, fmt.Errorf("%w: empty response from model", ErrSummarizationFailed)
	}
	return decodeReport(rawText), nil
}

// buildSummaryPrompt serializes the month's records into the request shape
// the model is asked to reason over.
func buildSummaryPrompt(month string, txs []core.Transaction) (string, error) {
	type row struct {
		Date     string `json:"date"`
		Category string `json:"category"`
		Memo     string `json:"memo"`
		Amount   int64  `json:"amount"`
		Kind     string `json:"kind"`
	}
	rows := make([]row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, row{
			Date:     tx.Date.String(),
			Category: tx.Category,
			Memo:     tx.Memo,
			Amount:   tx.Amount.Yen,
			Kind:     string(tx.Kind),
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a household finance assistant. Review the transactions for ")
	b.WriteString(month)
	b.WriteString(" (amounts in whole yen) and write a short report.\n\n")
	b.WriteString("Output STRICT JSON only, one object with these fields:\n")
	b.WriteString("- \"summary\": string, two or three sentences\n")
	b.WriteString("- \"insights\": array of strings\n")
	b.WriteString("- \"warnings\": array of strings, empty if nothing is worrying\n")
	b.WriteString("- \"suggestions\": array of strings\n\n")
	b.WriteString("Do NOT wrap the response in code fences.\n\n")
	b.WriteString("Transactions:\n")
	b.Write(payload)
	return b.String(), nil
}

// decodeReport tolerates markdown fences, prose and missing fields. A
// payload that is not a JSON object at all becomes the report summary
// itself, with every array empty.
func decodeReport(raw string) Report {
	clean := extractJSONObject(raw)

	var r Report
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return Report{
			Summary:     strings.TrimSpace(raw),
			Insights:    []string{},
			Warnings:    []string{},
			Suggestions: []string{},
		}
	}
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = "No summary available."
	}
	if r.Insights == nil {
		r.Insights = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	return r
}

// extractJSONObject keeps the outermost {...} of the response, dropping
// fences and prose the model may add despite instructions.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
