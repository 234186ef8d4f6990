// Package export renders the full ledger as a flat tabular text file.
package export

import (
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

// Filename is the suggested download name.
const Filename = "kakeibo.tsv"

var header = []string{"id", "date", "payer", "category", "memo", "amount", "kind"}

// TSV renders one row per transaction in fixed column order. Field
// separators embedded in free text are replaced with a space so the row
// structure always survives.
func TSV(txs []core.Transaction) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, tx := range txs {
		row := []string{
			tx.ID,
			tx.Date.String(),
			string(tx.Payer),
			sanitize(tx.Category),
			sanitize(tx.Memo),
			strconv.FormatInt(tx.Amount.Yen, 10),
			string(tx.Kind),
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

func sanitize(s string) string {
	replacer := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")
	return replacer.Replace(s)
}
