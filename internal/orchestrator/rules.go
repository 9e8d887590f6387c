package orchestrator

import (
	"saftetl/internal/quality"
	"saftetl/internal/table"
)

// Rule is one entry of a declarative check suite: Check runs only when every
// column in Requires is present.
type Rule struct {
	Name     string
	Requires []string
	Check    func(s *quality.Suite)
}

func ptr(f float64) *float64 { return &f }

// DefaultRules is the standard SAF-T sales suite. Billing consistency runs
// last so the remaining checks keep their historical order.
func DefaultRules() []Rule {
	return []Rule{
		{"completeness InvoiceDate", []string{"InvoiceDate"}, func(s *quality.Suite) { s.Completeness("InvoiceDate", 1.0) }},
		{"completeness CreditAmount", []string{"CreditAmount"}, func(s *quality.Suite) { s.Completeness("CreditAmount", 1.0) }},
		{"completeness ProductCode", []string{"ProductCode"}, func(s *quality.Suite) { s.Completeness("ProductCode", 2.0) }},
		{"completeness Quantity", []string{"Quantity"}, func(s *quality.Suite) { s.Completeness("Quantity", 2.0) }},

		{"type InvoiceDate", []string{"InvoiceDate"}, func(s *quality.Suite) { s.TypeMatch("InvoiceDate", table.KindTime) }},
		{"type CreditAmount", []string{"CreditAmount"}, func(s *quality.Suite) { s.TypeMatch("CreditAmount", table.KindFloat) }},
		{"type Quantity", []string{"Quantity"}, func(s *quality.Suite) { s.TypeMatch("Quantity", table.KindFloat) }},
		{"type UnitPrice", []string{"UnitPrice"}, func(s *quality.Suite) { s.TypeMatch("UnitPrice", table.KindFloat) }},

		{"range CreditAmount", []string{"CreditAmount"}, func(s *quality.Suite) { s.Range("CreditAmount", ptr(0), nil) }},
		{"range Quantity", []string{"Quantity"}, func(s *quality.Suite) { s.Range("Quantity", ptr(0), nil) }},
		{"range UnitPrice", []string{"UnitPrice"}, func(s *quality.Suite) { s.Range("UnitPrice", ptr(0), nil) }},
		{"range TaxPercentage", []string{"TaxPercentage"}, func(s *quality.Suite) { s.Range("TaxPercentage", ptr(0), ptr(100)) }},

		{"duplicates", []string{"InvoiceDate", "ProductCode"}, func(s *quality.Suite) {
			s.Duplicates([]string{"InvoiceDate", "ProductCode"}, true)
		}},

		{"positive CreditAmount", []string{"CreditAmount"}, func(s *quality.Suite) { s.Positive("CreditAmount") }},
		{"positive Quantity", []string{"Quantity"}, func(s *quality.Suite) { s.Positive("Quantity") }},

		{"dates InvoiceDate", []string{"InvoiceDate"}, func(s *quality.Suite) { s.ValidDates("InvoiceDate") }},

		{"billing", []string{"CreditAmount", "Quantity", "UnitPrice"}, func(s *quality.Suite) {
			s.ConsistentBilling("CreditAmount", "Quantity", "UnitPrice")
		}},
	}
}

// Apply runs every rule whose columns are present in t against s and
// returns the names of the rules it skipped.
func Apply(s *quality.Suite, t *table.Table, rules []Rule) (skipped []string) {
	for _, r := range rules {
		if !t.HasAll(r.Requires...) {
			skipped = append(skipped, r.Name)
			continue
		}
		r.Check(s)
	}
	return skipped
}
