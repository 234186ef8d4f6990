package vision

import "strings"

// buildExtractionPrompt instructs the model to emit a strict JSON array of
// receipt line items in the candidate-record shape.
func buildExtractionPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("You are a receipt parser for a Japanese household ledger.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read ALL purchasable line items from the attached receipt photo.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects.\n\n")
	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\", the purchase date printed on the receipt\n")
	b.WriteString("- \"memo\": string, the item description\n")
	b.WriteString("- \"amount\": number, whole yen, always positive\n")
	b.WriteString("- \"category\": string (one of the categories below)\n")
	b.WriteString("- \"kind\": string, \"expense\" unless the line is clearly a refund paid to the customer, then \"income\"\n\n")

	if len(categories) > 0 {
		b.WriteString("Use ONLY the following categories:\n")
		for _, c := range categories {
			b.WriteString("  - " + c + "\n")
		}
		b.WriteString("If unsure, use \"Uncategorized\".\n\n")
	}

	b.WriteString("Rules:\n")
	b.WriteString("- Skip subtotal, tax, change and payment lines; they are not items.\n")
	b.WriteString("- If the receipt date is unreadable, omit the \"date\" field.\n")
	b.WriteString("- Return ONLY valid raw JSON.\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n")
	b.WriteString("- Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}
