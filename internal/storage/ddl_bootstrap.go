package storage

import (
	"context"
	"fmt"
	"sync"

	"saftetl/internal/ddl"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
)

// RegisterDialect registers (or replaces) the SQL dialect for kind. Backends
// call it from init next to Register.
func RegisterDialect(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (ddl.Dialect, error) {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return ddl.Dialect{}, fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}

// EnsureTable renders def with the dialect of kind and applies it via
// repo.Exec.
func EnsureTable(ctx context.Context, kind string, repo Repository, def ddl.TableDef) error {
	d, err := DialectFor(kind)
	if err != nil {
		return err
	}
	stmt, err := ddl.BuildCreateTableSQL(def, d)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// Truncate deletes every row of fqn.
func Truncate(ctx context.Context, kind string, repo Repository, fqn string) error {
	d, err := DialectFor(kind)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, ddl.BuildDeleteAllSQL(fqn, d)); err != nil {
		return fmt.Errorf("truncate %s: %w", fqn, err)
	}
	return nil
}
