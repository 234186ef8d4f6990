// Package vision extracts candidate line items from a photographed receipt
// by way of a hosted vision model. The model's output is untrusted: every
// item is decoded leniently here and must still pass the core normalization
// gate before it can reach the ledger.
package vision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"kakeibo/internal/core"
)

// DefaultModel is the generation model used for receipt extraction.
const DefaultModel = "gemini-2.0-flash"

// ErrExtractionFailed covers every collaborator-boundary failure the same
// way: network errors, non-JSON payloads, refusals. The wrapped message is
// surfaced verbatim to the user; there is no automatic retry.
var ErrExtractionFailed = errors.New("extraction failed")

// Extractor is the port the import flow depends on.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]core.Input, error)
}

// Disabled is the Extractor used when no model credentials are configured.
// Every import attempt fails with a clear message instead of a dial error.
type Disabled struct{}

func (Disabled) Extract(context.Context, []byte, string) ([]core.Input, error) {
	return nil, fmt.Errorf("%w: no extraction model configured", ErrExtractionFailed)
}

// Gemini implements Extractor against the GenAI API.
type Gemini struct {
	client     *genai.Client
	model      string
	categories []string
}

// NewGemini builds a client from ambient credentials (GEMINI_API_KEY or
// application-default). categories seeds the prompt so the model labels
// items with household categories instead of inventing its own.
func NewGemini(ctx context.Context, model string, categories []string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model, categories: categories}, nil
}

func (g *Gemini) Extract(ctx context.Context, image []byte, mimeType string) ([]core.Input, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildExtractionPrompt(g.categories)},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrExtractionFailed)
	}

	items, err := decodeItems(rawText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return items, nil
}
