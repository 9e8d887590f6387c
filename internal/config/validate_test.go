package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

// valid returns a pipeline that produces no issues.
func valid() Pipeline {
	p := Default()
	p.Source.Path = "data/vendas.xlsx"
	return p
}

/*
TestValidatePipeline_ValidMinimal verifies that the defaults plus a source
path produce no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	if issues := ValidatePipeline(valid()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

/*
TestValidatePipeline_MissingJob verifies that an empty Job field produces a
SeverityError with path "job".
*/
func TestValidatePipeline_MissingJob(t *testing.T) {
	p := valid()
	p.Job = "  "

	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "job", "job must not be empty") {
		t.Fatalf("expected SeverityError for job; got issues: %+v", issues)
	}
	if !HasErrors(issues) {
		t.Fatalf("HasErrors = false")
	}
}

/*
TestValidatePipeline_Source covers the source path, extension and delimiter
checks.
*/
func TestValidatePipeline_Source(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing path", func(p *Pipeline) { p.Source.Path = "" }, SeverityError, "source.path", "required"},
		{"unknown extension", func(p *Pipeline) { p.Source.Path = "vendas.pdf" }, SeverityError, "source.path", "unsupported format"},
		{"parquet source", func(p *Pipeline) { p.Source.Path = "vendas.parquet" }, SeverityError, "source.path", "output-only"},
		{"long delimiter", func(p *Pipeline) { p.Source.Delimiter = ";;" }, SeverityError, "source.delimiter", "single character"},
		{"sheet on csv", func(p *Pipeline) { p.Source.Path = "v.csv"; p.Source.Sheet = "Vendas" }, SeverityWarning, "source.sheet", "ignored"},
		{"remote without extension", func(p *Pipeline) { p.Source.Path = "https://example.com/export?id=1" }, SeverityError, "source.path", "unsupported format"},
		{"negative retries", func(p *Pipeline) { p.Source.Retries = -1 }, SeverityError, "source.retries", ">= 0"},
		{"insecure remote", func(p *Pipeline) {
			p.Source.Path = "https://example.com/vendas.csv"
			p.Source.InsecureSkipVerify = true
		}, SeverityWarning, "source.insecure_skip_verify", "disabled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidatePipeline_RemoteSource(t *testing.T) {
	p := valid()
	p.Source.Path = "https://example.com/saft/vendas.xlsx?token=abc"
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("expected remote xlsx to validate, got %+v", issues)
	}
}

/*
TestValidatePipeline_Transform covers threshold bounds, type entries and the
empty-prefix warning.
*/
func TestValidatePipeline_Transform(t *testing.T) {
	p := valid()
	p.Transform.SparseThreshold = 1.5
	p.Transform.Types = []string{"CreditAmount:money"}
	p.Transform.Prefix = ""
	p.Transform.AmountColumn = ""

	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "transform.sparse_threshold", "[0, 1]") {
		t.Fatalf("missing threshold error: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "transform.types", "unknown column kind") {
		t.Fatalf("missing types error: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "transform.prefix", "no columns will be renamed") {
		t.Fatalf("missing prefix warning: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "transform.amount_column", "required") {
		t.Fatalf("missing amount column error: %+v", issues)
	}
}

/*
TestValidatePipeline_Output verifies format resolution from the path and from
an explicit override.
*/
func TestValidatePipeline_Output(t *testing.T) {
	p := valid()
	p.Output.Path = "out/clean.json"
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "output.path", "unsupported format") {
		t.Fatalf("expected output.path error")
	}

	// An explicit format wins over the extension.
	p.Output.Format = "parquet"
	for _, iss := range ValidatePipeline(p) {
		if iss.Path == "output.path" {
			t.Fatalf("unexpected output.path issue with explicit format: %v", iss)
		}
	}

	p.Output.Format = "ods"
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "output.format", "unsupported format") {
		t.Fatalf("expected output.format error")
	}

	p = valid()
	p.Output.ReportsDir = ""
	if !hasIssue(t, ValidatePipeline(p), SeverityWarning, "output.reports_dir", "working directory") {
		t.Fatalf("expected reports_dir warning")
	}
}

/*
TestValidatePipeline_Storage verifies that storage is optional, and that a
configured sink needs a known kind, a DSN and a table.
*/
func TestValidatePipeline_Storage(t *testing.T) {
	p := valid()
	p.Storage.Kind = "mssql"
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "storage.kind", "unsupported storage kind") {
		t.Fatalf("expected storage.kind error")
	}

	p.Storage.Kind = "postgres"
	p.Storage.DSN = ""
	p.Storage.Table = ""
	p.Storage.BatchSize = 0
	issues := ValidatePipeline(p)
	for _, want := range []string{"storage.dsn", "storage.table", "storage.batch_size"} {
		if !hasIssue(t, issues, SeverityError, want, "") {
			t.Fatalf("expected error at %s; got %+v", want, issues)
		}
	}

	p.Storage.DSN = "postgres://u@localhost/db"
	p.Storage.Table = "public.vendas"
	p.Storage.BatchSize = 1000
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("unexpected errors: %+v", issues)
	}
}

/*
TestValidatePipeline_MetricsAndLog covers backend requirements, log level
parsing and a negative debounce.
*/
func TestValidatePipeline_MetricsAndLog(t *testing.T) {
	p := valid()
	p.Metrics.Backend = "prometheus"
	p.Log.Level = "chatty"
	p.Log.Encoding = "xml"
	p.Watch.Debounce = -1

	issues := ValidatePipeline(p)
	checks := []struct{ path, msg string }{
		{"metrics.pushgateway_url", "required"},
		{"log.level", "unknown level"},
		{"log.encoding", "console or json"},
		{"watch.debounce", "negative"},
	}
	for _, c := range checks {
		if !hasIssue(t, issues, SeverityError, c.path, c.msg) {
			t.Fatalf("expected error at %s; got %+v", c.path, issues)
		}
	}

	p = valid()
	p.Metrics.Backend = "datadog"
	if !hasIssue(t, ValidatePipeline(p), SeverityWarning, "metrics.datadog_addr", "DD_AGENT_HOST") {
		t.Fatalf("expected datadog warning")
	}
	p.Metrics.Backend = "graphite"
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "metrics.backend", "unknown backend") {
		t.Fatalf("expected backend error")
	}
}

func TestIssueError(t *testing.T) {
	iss := Issue{Severity: SeverityWarning, Path: "output.reports_dir", Message: "empty"}
	if got, want := iss.Error(), "warning at output.reports_dir: empty"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
