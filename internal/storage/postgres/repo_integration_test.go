//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"saftetl/internal/storage"
	"saftetl/internal/table"
	"saftetl/pkg/records"
)

// setupPostgres starts a disposable PostgreSQL container and returns its DSN.
func setupPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	pgContainer, err := postgrescontainer.Run(ctx,
		"postgres:16-alpine",
		postgrescontainer.WithDatabase("saft_test"),
		postgrescontainer.WithUsername("test"),
		postgrescontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(pgContainer)
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestLoadIntoPostgres(t *testing.T) {
	ctx := context.Background()
	dsn := setupPostgres(ctx, t)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tb := table.New([]string{"InvoiceDate", "ProductCode", "CreditAmount", "Quantity"}, []records.Record{
		{"InvoiceDate": at, "ProductCode": "A1", "CreditAmount": 10.5, "Quantity": int64(2)},
		{"InvoiceDate": at, "ProductCode": "B2", "CreditAmount": 4.0, "Quantity": nil},
		{"InvoiceDate": at, "ProductCode": "C3", "CreditAmount": 1.25, "Quantity": int64(1)},
	})

	cfg := storage.Config{
		Kind: "postgres", DSN: dsn, Table: "public.vendas",
		BatchSize: 2, AutoCreateTable: true, Truncate: true,
	}
	for i := 0; i < 2; i++ {
		n, err := storage.Load(ctx, cfg, tb)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	}

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "public.vendas"})
	require.NoError(t, err)
	defer closeFn()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n, "truncate keeps reloads idempotent")

	var got time.Time
	require.NoError(t, repo.pool.QueryRow(ctx,
		`SELECT invoicedate FROM public.vendas WHERE productcode = 'A1'`).Scan(&got))
	assert.True(t, got.Equal(at), "got %v", got)
}
