package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"saftetl/internal/table"
	"saftetl/internal/transformer"
)

var nbsp = strings.NewReplacer("Â\u00a0", " ", "\u00a0", " ")

// Normalize composes text cells to NFC, folds non-breaking spaces (which
// spreadsheet exports leave around codes and descriptions) and trims them.
// Cells that end up empty become nil.
type Normalize struct{}

func (Normalize) Name() string { return "normalize" }

func (Normalize) Apply(t *table.Table) transformer.Outcome {
	var out transformer.Outcome
	for _, r := range t.Rows() {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(nbsp.Replace(norm.NFC.String(s)))
			if s == "" {
				r[k] = nil
				out.Nulled++
				continue
			}
			r[k] = s
		}
	}
	return out
}
