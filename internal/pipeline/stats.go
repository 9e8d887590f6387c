package pipeline

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats summarises a pipeline run. Final counts and Retention are set when
// Run completes.
type Stats struct {
	InitialRows    int     `json:"initial_rows" yaml:"initial_rows"`
	InitialColumns int     `json:"initial_columns" yaml:"initial_columns"`
	FinalRows      int     `json:"final_rows" yaml:"final_rows"`
	FinalColumns   int     `json:"final_columns" yaml:"final_columns"`
	Retention      float64 `json:"retention" yaml:"retention"`

	RenamedColumns int `json:"renamed_columns" yaml:"renamed_columns"`
	FilteredRows   int `json:"filtered_rows" yaml:"filtered_rows"`
	CoercedColumns int `json:"coerced_columns" yaml:"coerced_columns"`
	NulledValues   int `json:"nulled_values" yaml:"nulled_values"`
	DuplicateRows  int `json:"duplicate_rows" yaml:"duplicate_rows"`
	SparseColumns  int `json:"sparse_columns" yaml:"sparse_columns"`

	Loaded    bool `json:"-" yaml:"-"`
	Finalized bool `json:"-" yaml:"-"`
}

// Retention returns final as a percentage of initial, or 0 when initial is 0.
func Retention(initial, final int) float64 {
	if initial == 0 {
		return 0
	}
	return float64(final) / float64(initial) * 100
}

var rule = strings.Repeat("=", 60)

// WriteReport prints the human readable ETL report.
func (s Stats) WriteReport(w io.Writer) error {
	p := message.NewPrinter(language.English)
	if !s.Loaded {
		_, err := fmt.Fprintln(w, "No processing has been run yet")
		return err
	}
	p.Fprintf(w, "\n%s\nETL PIPELINE REPORT\n%s\n", rule, rule)
	p.Fprintf(w, "\nROWS:\n   Initial: %d\n", s.InitialRows)
	if s.Finalized {
		p.Fprintf(w, "   Final: %d\n", s.FinalRows)
		p.Fprintf(w, "   Removed: %d\n", s.InitialRows-s.FinalRows)
		p.Fprintf(w, "   Retention: %.1f%%\n", s.Retention)
	}
	p.Fprintf(w, "\nCOLUMNS:\n   Initial: %d\n", s.InitialColumns)
	if s.Finalized {
		p.Fprintf(w, "   Final: %d\n", s.FinalColumns)
	}
	p.Fprintf(w, "\nSTEPS:\n")
	p.Fprintf(w, "   Prefixes stripped: %d columns\n", s.RenamedColumns)
	p.Fprintf(w, "   Invalid rows removed: %d\n", s.FilteredRows)
	p.Fprintf(w, "   Columns coerced: %d (%d values nulled)\n", s.CoercedColumns, s.NulledValues)
	p.Fprintf(w, "   Duplicate rows removed: %d\n", s.DuplicateRows)
	p.Fprintf(w, "   Sparse columns removed: %d\n", s.SparseColumns)
	_, err := p.Fprintf(w, "\n%s\n", rule)
	return err
}
