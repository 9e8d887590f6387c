package quality

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// ErrNoTestsRun is returned by Report when no check has been run.
var ErrNoTestsRun = errors.New("no tests run")

// Totals counts results by status.
type Totals struct {
	Total    int `json:"total" yaml:"total"`
	Passed   int `json:"passed" yaml:"passed"`
	Failed   int `json:"failed" yaml:"failed"`
	Warnings int `json:"warnings" yaml:"warnings"`
}

// Report summarises a suite run.
type Report struct {
	Dataset     string   `json:"dataset" yaml:"dataset"`
	Timestamp   string   `json:"timestamp" yaml:"timestamp"`
	Rows        int      `json:"rows" yaml:"rows"`
	Columns     int      `json:"columns" yaml:"columns"`
	Tests       Totals   `json:"tests" yaml:"tests"`
	SuccessRate float64  `json:"success_rate" yaml:"success_rate"`
	Results     []Result `json:"results" yaml:"results"`
	// Error is set instead of the fields above when the report could not be
	// built.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report builds the report for the results recorded so far.
func (s *Suite) Report() (Report, error) {
	if len(s.results) == 0 {
		return Report{}, ErrNoTestsRun
	}
	rep := Report{
		Dataset:   s.dataset,
		Timestamp: s.started.Format(time.RFC3339),
		Rows:      s.t.Len(),
		Columns:   s.t.Width(),
		Results:   s.Results(),
	}
	for _, r := range s.results {
		rep.Tests.Total++
		switch r.Status {
		case StatusPass:
			rep.Tests.Passed++
		case StatusFail:
			rep.Tests.Failed++
		case StatusWarning:
			rep.Tests.Warnings++
		}
	}
	rep.SuccessRate = pct(rep.Tests.Passed, rep.Tests.Total)
	return rep, nil
}

// ExportJSON writes the suite report as indented JSON.
func (s *Suite) ExportJSON(path string) error {
	rep, err := s.Report()
	if err != nil {
		return err
	}
	return rep.ExportJSON(path)
}

// ExportJSON writes r to path as indented JSON.
func (r Report) ExportJSON(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ExportYAML writes r to path as YAML.
func (r Report) ExportYAML(path string) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// WriteText prints the human readable report.
func (r Report) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 80)

	p.Fprintf(w, "\n%s\nDATA QUALITY REPORT - %s\n%s\n", rule, r.Dataset, rule)
	if r.Error != "" {
		_, err := p.Fprintf(w, "\n%s\n\n%s\n", r.Error, rule)
		return err
	}
	p.Fprintf(w, "\nDATASET:\n   Rows: %d\n   Columns: %d\n", r.Rows, r.Columns)
	p.Fprintf(w, "\nSUMMARY:\n   Total: %d\n   Passed: %d\n   Failed: %d\n   Warnings: %d\n   Success rate: %v%%\n",
		r.Tests.Total, r.Tests.Passed, r.Tests.Failed, r.Tests.Warnings, r.SuccessRate)
	p.Fprintf(w, "\nDETAILS:\n%s\n", strings.Repeat("-", 80))
	for _, res := range r.Results {
		p.Fprintf(w, "\n[%s] %s\n", res.Status, res.Message)
		keys := make([]string, 0, len(res.Details))
		for k := range res.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "   - %s: %v\n", k, res.Details[k])
		}
	}
	_, err := p.Fprintf(w, "\n%s\n", rule)
	return err
}
