// Package config defines the configuration model for a SAF-T processing run.
//
// A run is described by one Pipeline value: where the export comes from, how
// it is cleaned, where the cleaned data and reports go and, optionally, which
// database receives the table. Values come from defaults, an optional YAML or
// JSON file and SAFT_* environment variables, in increasing precedence (see
// Load).
//
// Example (YAML):
//
//	job: vendas-2024
//	source:
//	  path: data/vendas.xlsx
//	transform:
//	  full: true
//	  types: ["InvoiceDate:datetime", "CreditAmount:float64"]
//	output:
//	  path: out/dados_limpos.xlsx
//	  reports_dir: out/relatorios
//	storage:
//	  kind: sqlite
//	  dsn: out/saft.db
//	  table: vendas
package config

import (
	"fmt"
	"strings"
	"time"

	"saftetl/internal/table"
)

// Pipeline is the top-level configuration of a run.
type Pipeline struct {
	// Job names the dataset in logs, metrics and the Pushgateway grouping key.
	Job       string    `mapstructure:"job" json:"job" yaml:"job"`
	Source    Source    `mapstructure:"source" json:"source" yaml:"source"`
	Transform Transform `mapstructure:"transform" json:"transform" yaml:"transform"`
	Quality   Quality   `mapstructure:"quality" json:"quality" yaml:"quality"`
	Output    Output    `mapstructure:"output" json:"output" yaml:"output"`
	Storage   Storage   `mapstructure:"storage" json:"storage" yaml:"storage"`
	Metrics   Metrics   `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	Log       Log       `mapstructure:"log" json:"log" yaml:"log"`
	Watch     Watch     `mapstructure:"watch" json:"watch" yaml:"watch"`
}

// Source locates the SAF-T export.
type Source struct {
	// Path is the xlsx, csv or tsv file. An http(s) URL is downloaded first.
	Path string `mapstructure:"path" json:"path" yaml:"path"`
	// Sheet selects an xlsx worksheet; empty means the first one.
	Sheet string `mapstructure:"sheet" json:"sheet" yaml:"sheet"`
	// Delimiter is the csv field separator.
	Delimiter string `mapstructure:"delimiter" json:"delimiter" yaml:"delimiter"`

	// Timeout, Retries and InsecureSkipVerify apply to remote sources only.
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	Retries            int           `mapstructure:"retries" json:"retries" yaml:"retries"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Comma returns the first rune of Delimiter, or ',' when it is empty.
func (s Source) Comma() rune {
	if s.Delimiter == "" {
		return ','
	}
	return []rune(s.Delimiter)[0]
}

// Transform configures the cleaning steps.
type Transform struct {
	Prefix       string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	DateColumn   string `mapstructure:"date_column" json:"date_column" yaml:"date_column"`
	AmountColumn string `mapstructure:"amount_column" json:"amount_column" yaml:"amount_column"`
	// Types lists "Column:kind" coercions. Empty means the SAF-T defaults.
	// A list is used rather than a map so column names keep their case.
	Types []string `mapstructure:"types" json:"types" yaml:"types"`
	// Full adds duplicate removal and sparse-column removal.
	Full            bool    `mapstructure:"full" json:"full" yaml:"full"`
	SparseThreshold float64 `mapstructure:"sparse_threshold" json:"sparse_threshold" yaml:"sparse_threshold"`
	Normalize       bool    `mapstructure:"normalize" json:"normalize" yaml:"normalize"`
}

// Kinds parses Types. It returns nil when Types is empty.
func (t Transform) Kinds() (map[string]table.Kind, error) {
	if len(t.Types) == 0 {
		return nil, nil
	}
	out := make(map[string]table.Kind, len(t.Types))
	for _, entry := range t.Types {
		i := strings.LastIndex(entry, ":")
		if i <= 0 || i == len(entry)-1 {
			return nil, fmt.Errorf("type entry %q: want Column:kind", entry)
		}
		k, err := table.ParseKind(entry[i+1:])
		if err != nil {
			return nil, fmt.Errorf("type entry %q: %w", entry, err)
		}
		out[strings.TrimSpace(entry[:i])] = k
	}
	return out, nil
}

// Quality configures the quality stage.
type Quality struct {
	// Dataset is the name printed in quality reports.
	Dataset string `mapstructure:"dataset" json:"dataset" yaml:"dataset"`
	// Skip disables the quality stage.
	Skip bool `mapstructure:"skip" json:"skip" yaml:"skip"`
}

// Output configures exported files.
type Output struct {
	Path string `mapstructure:"path" json:"path" yaml:"path"`
	// Format overrides the format implied by Path's extension.
	Format     string `mapstructure:"format" json:"format" yaml:"format"`
	ReportsDir string `mapstructure:"reports_dir" json:"reports_dir" yaml:"reports_dir"`
	// YAML also writes the reports as YAML next to the JSON files.
	YAML bool `mapstructure:"yaml" json:"yaml" yaml:"yaml"`
}

// Storage configures the optional database sink. An empty Kind disables it.
type Storage struct {
	Kind string `mapstructure:"kind" json:"kind" yaml:"kind"`
	// DSN is the driver connection string (a file path for sqlite).
	DSN             string `mapstructure:"dsn" json:"dsn" yaml:"dsn"`
	Table           string `mapstructure:"table" json:"table" yaml:"table"`
	BatchSize       int    `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size"`
	AutoCreateTable bool   `mapstructure:"auto_create_table" json:"auto_create_table" yaml:"auto_create_table"`
	// Truncate empties the table before loading.
	Truncate bool `mapstructure:"truncate" json:"truncate" yaml:"truncate"`
}

// Metrics selects the metrics backend. An empty Backend disables metrics.
type Metrics struct {
	Backend        string   `mapstructure:"backend" json:"backend" yaml:"backend"` // "", "prometheus", "datadog"
	PushgatewayURL string   `mapstructure:"pushgateway_url" json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `mapstructure:"datadog_addr" json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	Tags           []string `mapstructure:"tags" json:"tags" yaml:"tags"`
}

// Log configures the zap logger.
type Log struct {
	Level    string `mapstructure:"level" json:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" json:"encoding" yaml:"encoding"`
}

// Watch configures the watch command.
type Watch struct {
	// Debounce is how long the input must stay quiet before a rerun.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
}
