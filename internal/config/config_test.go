package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"saftetl/internal/table"
)

// -----------------------------------------------------------------------------
// Loading tests
// -----------------------------------------------------------------------------
//
// These tests check the precedence chain used by Load: defaults, then the
// config file, then SAFT_* environment variables. Each test runs in its own
// temp directory so a stray .env in the repo cannot leak in.

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	p := Default()

	if p.Job != "saft" {
		t.Fatalf("job = %q, want saft", p.Job)
	}
	if p.Transform.Prefix != "ns1:" || !p.Transform.Full || p.Transform.SparseThreshold != 0.7 {
		t.Fatalf("transform defaults = %+v", p.Transform)
	}
	if p.Transform.DateColumn != "InvoiceDate" || p.Transform.AmountColumn != "CreditAmount" {
		t.Fatalf("filter columns = %q/%q", p.Transform.DateColumn, p.Transform.AmountColumn)
	}
	if p.Output.Path != "dados_limpos.xlsx" || p.Output.ReportsDir != "relatorios" {
		t.Fatalf("output defaults = %+v", p.Output)
	}
	if p.Storage.BatchSize != 5000 || !p.Storage.AutoCreateTable || p.Storage.Kind != "" {
		t.Fatalf("storage defaults = %+v", p.Storage)
	}
	if p.Source.Timeout != 30*time.Second || p.Source.Retries != 3 || p.Source.InsecureSkipVerify {
		t.Fatalf("source defaults = %+v", p.Source)
	}
	if p.Watch.Debounce != 500*time.Millisecond {
		t.Fatalf("debounce = %v, want 500ms", p.Watch.Debounce)
	}
	if p.Quality.Dataset != "SAF-T Processed" {
		t.Fatalf("dataset = %q", p.Quality.Dataset)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "saft.yaml")
	writeFile(t, path, `
job: vendas-2024
source:
  path: data/vendas.csv
  delimiter: ";"
transform:
  full: false
  types: ["InvoiceDate:date", "Quantity:int"]
storage:
  kind: sqlite
  dsn: out/saft.db
  batch_size: 100
watch:
  debounce: 2s
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "vendas-2024" || p.Source.Path != "data/vendas.csv" {
		t.Fatalf("job/source = %q/%q", p.Job, p.Source.Path)
	}
	if p.Source.Comma() != ';' {
		t.Fatalf("comma = %q, want ';'", p.Source.Comma())
	}
	if p.Transform.Full {
		t.Fatalf("transform.full = true, want false from file")
	}
	if p.Transform.Prefix != "ns1:" {
		t.Fatalf("unset keys keep defaults; prefix = %q", p.Transform.Prefix)
	}
	if p.Storage.Kind != "sqlite" || p.Storage.BatchSize != 100 || p.Storage.Table != "saft_sales" {
		t.Fatalf("storage = %+v", p.Storage)
	}
	if p.Watch.Debounce != 2*time.Second {
		t.Fatalf("debounce = %v, want 2s", p.Watch.Debounce)
	}

	kinds, err := p.Transform.Kinds()
	if err != nil {
		t.Fatalf("Kinds: %v", err)
	}
	if kinds["InvoiceDate"] != table.KindTime || kinds["Quantity"] != table.KindInt {
		t.Fatalf("kinds = %v (column case must be preserved)", kinds)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "saft.json")
	writeFile(t, path, `{"job": "from-file", "output": {"path": "a.csv"}}`)
	t.Setenv("SAFT_JOB", "from-env")
	t.Setenv("SAFT_OUTPUT_REPORTS_DIR", "env-reports")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "from-env" {
		t.Fatalf("job = %q, want from-env", p.Job)
	}
	if p.Output.Path != "a.csv" || p.Output.ReportsDir != "env-reports" {
		t.Fatalf("output = %+v", p.Output)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, ".env"), "SAFT_SOURCE_PATH=from-dotenv.xlsx\n")
	t.Cleanup(func() { _ = os.Unsetenv("SAFT_SOURCE_PATH") })

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Source.Path != "from-dotenv.xlsx" {
		t.Fatalf("source.path = %q, want from-dotenv.xlsx", p.Source.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdirTemp(t)
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatalf("Load(missing) error = nil, want error")
	}
}

func TestTransformKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		types   []string
		want    int
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"valid", []string{"CreditAmount:float", "ns1:InvoiceDate:datetime"}, 2, false},
		{"no separator", []string{"CreditAmount"}, 0, true},
		{"no kind", []string{"CreditAmount:"}, 0, true},
		{"unknown kind", []string{"CreditAmount:money"}, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transform{Types: tc.types}.Kinds()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Kinds() err = %v, wantErr %v", err, tc.wantErr)
			}
			if len(got) != tc.want {
				t.Fatalf("Kinds() = %v, want %d entries", got, tc.want)
			}
		})
	}

	// The last colon separates the kind, so prefixed names survive.
	got, _ := Transform{Types: []string{"ns1:InvoiceDate:datetime"}}.Kinds()
	if got["ns1:InvoiceDate"] != table.KindTime {
		t.Fatalf("prefixed column = %v", got)
	}
}

func TestSourceComma(t *testing.T) {
	t.Parallel()
	if got := (Source{}).Comma(); got != ',' {
		t.Fatalf("default comma = %q", got)
	}
	if got := (Source{Delimiter: "\t"}).Comma(); got != '\t' {
		t.Fatalf("tab comma = %q", got)
	}
}
