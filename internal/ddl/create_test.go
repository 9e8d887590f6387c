package ddl

import (
	"strings"
	"testing"

	"saftetl/internal/table"
	"saftetl/pkg/records"
)

// testDialect quotes with brackets and spells kinds in upper case so the
// rendered statements are easy to read in assertions.
var testDialect = Dialect{
	Quote:   func(s string) string { return "[" + s + "]" },
	MapType: func(k table.Kind) string { return strings.ToUpper(string(k)) },
}

// TestBuildCreateTableSQL verifies that BuildCreateTableSQL generates the
// expected CREATE TABLE statements and surfaces appropriate errors for invalid
// inputs.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		dialect     Dialect
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Kind: table.KindInt}}},
			dialect:     testDialect,
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			dialect:     testDialect,
			errContains: "at least one column is required",
		},
		{
			name:        "empty column name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " "}}},
			dialect:     testDialect,
			errContains: "column with empty name",
		},
		{
			name:        "missing dialect returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "incomplete dialect",
		},
		{
			name: "nullable columns and primary key",
			def: TableDef{
				FQN: "public.vendas",
				Columns: []ColumnDef{
					{Name: "invoicedate", Kind: table.KindTime, PrimaryKey: true},
					{Name: "creditamount", Kind: table.KindFloat, Nullable: true},
				},
			},
			dialect: testDialect,
			wantSQL: "CREATE TABLE IF NOT EXISTS [public].[vendas] (\n" +
				"  [invoicedate] DATETIME NOT NULL,\n" +
				"  [creditamount] FLOAT64,\n" +
				"  PRIMARY KEY ([invoicedate])\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tt.def, tt.dialect)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tt.wantSQL)
			}
		})
	}
}

func TestBuildDeleteAllSQL(t *testing.T) {
	t.Parallel()
	if got := BuildDeleteAllSQL("main.vendas", testDialect); got != "DELETE FROM [main].[vendas]" {
		t.Fatalf("got %q", got)
	}
}

func TestFromTable(t *testing.T) {
	t.Parallel()

	tb := table.New([]string{"InvoiceDate", "Preço Unitário", "preco unitario"}, []records.Record{
		{"InvoiceDate": "2024-01-01", "Preço Unitário": 1.5, "preco unitario": int64(2)},
	})
	def := FromTable("vendas", tb)

	if def.FQN != "vendas" {
		t.Fatalf("FQN = %q", def.FQN)
	}
	wantNames := []string{"invoicedate", "preco_unitario", "preco_unitario_2"}
	for i, n := range def.Names() {
		if n != wantNames[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, n, wantNames[i])
		}
	}
	if src := def.Sources(); src[1] != "Preço Unitário" {
		t.Fatalf("Sources()[1] = %q", src[1])
	}
	if def.Columns[1].Kind != table.KindFloat || !def.Columns[1].Nullable {
		t.Fatalf("column 1 = %+v", def.Columns[1])
	}
}
