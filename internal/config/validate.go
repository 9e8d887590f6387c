package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"

	"saftetl/internal/fetch"
	"saftetl/internal/tableio"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Storage kinds accepted by ValidatePipeline.
var storageKinds = map[string]bool{"sqlite": true, "postgres": true, "mysql": true}

// ValidatePipeline performs static validation of p. It does not touch the
// filesystem; a source that does not exist is reported at run time.
//
// Example:
//
//	issues := config.ValidatePipeline(p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityError, "job", "job must not be empty")
	}

	validateSource(p.Source, add)
	validateTransform(p.Transform, add)
	validateOutput(p.Output, add)
	validateStorage(p.Storage, add)
	validateMetrics(p.Metrics, add)

	if p.Log.Level != "" {
		if _, err := zapcore.ParseLevel(p.Log.Level); err != nil {
			add(SeverityError, "log.level", "unknown level %q", p.Log.Level)
		}
	}
	if e := p.Log.Encoding; e != "" && e != "console" && e != "json" {
		add(SeverityError, "log.encoding", "must be console or json, got %q", e)
	}
	if p.Watch.Debounce < 0 {
		add(SeverityError, "watch.debounce", "must not be negative")
	}
	return issues
}

type addFunc func(sev IssueSeverity, path, format string, args ...any)

func validateSource(s Source, add addFunc) {
	// Remote sources are checked by the file name they are saved under.
	name := fetch.LocalPath(s.Path)
	if strings.TrimSpace(s.Path) == "" {
		add(SeverityError, "source.path", "source path is required")
	} else if f, err := tableio.FormatFromPath(name); err != nil {
		add(SeverityError, "source.path", "%v", err)
	} else if f == tableio.FormatParquet {
		add(SeverityError, "source.path", "parquet is an output-only format")
	}
	if s.Delimiter != "" && utf8.RuneCountInString(s.Delimiter) != 1 {
		add(SeverityError, "source.delimiter", "must be a single character, got %q", s.Delimiter)
	}
	if s.Sheet != "" && s.Path != "" {
		if f, err := tableio.FormatFromPath(name); err == nil && f != tableio.FormatXLSX {
			add(SeverityWarning, "source.sheet", "sheet is ignored for %s sources", f)
		}
	}
	if s.Retries < 0 {
		add(SeverityError, "source.retries", "must be >= 0, got %d", s.Retries)
	}
	if s.Timeout < 0 {
		add(SeverityError, "source.timeout", "must be >= 0, got %s", s.Timeout)
	}
	if s.InsecureSkipVerify && fetch.IsRemote(s.Path) {
		add(SeverityWarning, "source.insecure_skip_verify", "TLS certificate verification is disabled")
	}
}

func validateTransform(t Transform, add addFunc) {
	if t.SparseThreshold < 0 || t.SparseThreshold > 1 {
		add(SeverityError, "transform.sparse_threshold", "must be within [0, 1], got %v", t.SparseThreshold)
	}
	if t.Prefix == "" {
		add(SeverityWarning, "transform.prefix", "empty prefix: no columns will be renamed")
	}
	if strings.TrimSpace(t.DateColumn) == "" {
		add(SeverityError, "transform.date_column", "date column is required")
	}
	if strings.TrimSpace(t.AmountColumn) == "" {
		add(SeverityError, "transform.amount_column", "amount column is required")
	}
	if _, err := t.Kinds(); err != nil {
		add(SeverityError, "transform.types", "%v", err)
	}
}

func validateOutput(o Output, add addFunc) {
	if strings.TrimSpace(o.Path) == "" {
		add(SeverityError, "output.path", "output path is required")
	} else if o.Format == "" {
		if _, err := tableio.FormatFromPath(o.Path); err != nil {
			add(SeverityError, "output.path", "%v", err)
		}
	}
	if o.Format != "" {
		if _, err := tableio.ParseFormat(o.Format); err != nil {
			add(SeverityError, "output.format", "%v", err)
		}
	}
	if strings.TrimSpace(o.ReportsDir) == "" {
		add(SeverityWarning, "output.reports_dir", "empty: reports are written to the working directory")
	}
}

func validateStorage(s Storage, add addFunc) {
	if s.Kind == "" {
		return
	}
	if !storageKinds[s.Kind] {
		add(SeverityError, "storage.kind", "unsupported storage kind %q (want sqlite, postgres or mysql)", s.Kind)
		return
	}
	if strings.TrimSpace(s.DSN) == "" {
		add(SeverityError, "storage.dsn", "dsn is required for %s", s.Kind)
	}
	if strings.TrimSpace(s.Table) == "" {
		add(SeverityError, "storage.table", "table is required")
	}
	if s.BatchSize <= 0 {
		add(SeverityError, "storage.batch_size", "must be positive, got %d", s.BatchSize)
	}
}

func validateMetrics(m Metrics, add addFunc) {
	switch m.Backend {
	case "":
	case "prometheus":
		if m.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "required for the prometheus backend")
		}
	case "datadog":
		if m.DatadogAddr == "" {
			add(SeverityWarning, "metrics.datadog_addr", "empty: the statsd client falls back to DD_AGENT_HOST")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown backend %q (want prometheus or datadog)", m.Backend)
	}
}
