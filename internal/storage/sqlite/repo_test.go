package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saftetl/internal/storage"
	"saftetl/internal/table"
	"saftetl/pkg/records"
)

func TestInsertSQL(t *testing.T) {
	t.Parallel()
	got := insertSQL("main.vendas", []string{"invoicedate", "creditamount"})
	assert.Equal(t, `INSERT INTO "main"."vendas" ("invoicedate", "creditamount") VALUES (?, ?)`, got)
}

func TestDialectTypes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "INTEGER", Dialect.MapType(table.KindInt))
	assert.Equal(t, "REAL", Dialect.MapType(table.KindFloat))
	assert.Equal(t, "TEXT", Dialect.MapType(table.KindTime))
	assert.Equal(t, "TEXT", Dialect.MapType(table.KindMixed))
	assert.Equal(t, `"a""b"`, Dialect.Quote(`a"b`))
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()
	_, _, err := NewRepository(context.Background(), Config{})
	assert.ErrorContains(t, err, "DSN must not be empty")
}

func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: filepath.Join(t.TempDir(), "t.db"), Table: "t"})
	require.NoError(t, err)
	defer closeFn()
	require.NoError(t, r.Exec(ctx, `CREATE TABLE "t" ("a" TEXT, "b" TEXT)`))

	_, err = r.CopyFrom(ctx, []string{"a", "b"}, [][]any{{"x"}})
	assert.ErrorContains(t, err, "row length 1 != columns length 2")

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "failed batch is rolled back")
}

// TestLoadEndToEnd drives storage.Load against a real database file: the
// table is created from column kinds, truncated on reload, and values keep
// their types.
func TestLoadEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "saft.db")

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tb := table.New([]string{"InvoiceDate", "ProductCode", "CreditAmount", "Quantity"}, []records.Record{
		{"InvoiceDate": at, "ProductCode": "A1", "CreditAmount": 10.5, "Quantity": int64(2)},
		{"InvoiceDate": at, "ProductCode": "B2", "CreditAmount": 4.0, "Quantity": nil},
	})

	cfg := storage.Config{Kind: "sqlite", DSN: dsn, Table: "vendas", BatchSize: 1, AutoCreateTable: true, Truncate: true}
	for i := 0; i < 2; i++ {
		n, err := storage.Load(ctx, cfg, tb)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	}

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "vendas"`).Scan(&count))
	assert.Equal(t, 2, count, "truncate keeps reloads idempotent")

	var (
		date   string
		amount float64
		qty    sql.NullInt64
	)
	row := db.QueryRowContext(ctx, `SELECT "invoicedate", "creditamount", "quantity" FROM "vendas" WHERE "productcode" = 'B2'`)
	require.NoError(t, row.Scan(&date, &amount, &qty))
	assert.Equal(t, "2024-03-01 09:30:00", date)
	assert.Equal(t, 4.0, amount)
	assert.False(t, qty.Valid)
}
