package ddl

import (
	"strings"
	"testing"
)

func TestIdent(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"InvoiceDate":       "invoicedate",
		"ns1:InvoiceDate":   "ns1_invoicedate",
		"Preço Unitário":    "preco_unitario",
		"  Nº Fatura  ":     "n_fatura",
		"IVA (%)":           "iva",
		"2024 vendas":       "c_2024_vendas",
		"":                  "col",
		"***":               "col",
		"Descrição--Artigo": "descricao_artigo",
	}
	for in, want := range cases {
		if got := Ident(in); got != want {
			t.Errorf("Ident(%q) = %q, want %q", in, got, want)
		}
	}

	long := Ident(strings.Repeat("a", 100))
	if len(long) != MaxIdentLen {
		t.Errorf("len(Ident(long)) = %d, want %d", len(long), MaxIdentLen)
	}
}

func TestUniqueIdents(t *testing.T) {
	t.Parallel()

	got := UniqueIdents([]string{"Valor", "valor", "VALOR", "Valor_2"})
	want := []string{"valor", "valor_2", "valor_3", "valor_2_2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UniqueIdents = %v, want %v", got, want)
		}
	}
}
