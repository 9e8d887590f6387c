package sqlite

import (
	"context"
	"testing"

	"saftetl/internal/storage"
)

// TestSQLiteStorageRegistrationUsesNewRepositoryHook verifies that the
// "sqlite" backend registered in init() uses the newRepository hook and that
// wrappedRepo delegates Close.
func TestSQLiteStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	origNewRepository := newRepository
	defer func() { newRepository = origNewRepository }()

	var (
		called bool
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = true
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:  "sqlite",
		DSN:   "file:test.db?mode=memory",
		Table: "vendas",
	})
	if err != nil {
		t.Fatalf("storage.New error: %v", err)
	}
	if !called {
		t.Fatalf("newRepository hook was not called")
	}
	if gotCfg.DSN != "file:test.db?mode=memory" || gotCfg.Table != "vendas" {
		t.Fatalf("cfg = %+v", gotCfg)
	}

	repo.Close()
	if !closed {
		t.Fatalf("Close did not call closeFn")
	}

	if _, err := storage.DialectFor("sqlite"); err != nil {
		t.Fatalf("dialect not registered: %v", err)
	}
}
