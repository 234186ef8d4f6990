package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"kakeibo/internal/core"
)

// decodeItems turns raw model text into candidate inputs. Each field is
// independently optional and may arrive with the wrong JSON type; per-item
// noise is absorbed into zero values and left for the normalization gate to
// drop. Only a payload that is not a JSON array at all is an error.
func decodeItems(raw string) ([]core.Input, error) {
	clean := cleanModelJSON(raw)

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal model output: %w", err)
	}

	// Tolerate either a bare array or an {"items": [...]} wrapper.
	if obj, ok := parsed.(map[string]interface{}); ok {
		parsed = obj["items"]
	}
	arr, ok := parsed.([]interface{})
	if !ok {
		return nil, fmt.Errorf("model output is %T, want a JSON array", parsed)
	}

	items := make([]core.Input, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		items = append(items, core.Input{
			Date:     stringField(obj, "date"),
			Memo:     stringField(obj, "memo"),
			Amount:   amountField(obj, "amount"),
			Category: stringField(obj, "category"),
			Payer:    stringField(obj, "payer"),
			Kind:     stringField(obj, "kind"),
		})
	}
	return items, nil
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// amountField accepts a number or a numeric string; anything else becomes
// zero and fails the gate downstream.
func amountField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(math.Round(v))
	case string:
		yen, err := core.ParseYen(v)
		if err != nil {
			return 0
		}
		return yen
	default:
		return 0
	}
}

// cleanModelJSON strips markdown fences and surrounding prose the model may
// emit despite instructions, keeping the outermost JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
