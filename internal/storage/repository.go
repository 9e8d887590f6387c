// Package storage loads Record Tables into SQL databases.
//
// Backends (sqlite, postgres, mysql) register a Factory and a ddl.Dialect at
// init time; callers import internal/storage/all for the side effects and
// stay backend-agnostic through Repository and Load.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind  string // "sqlite", "postgres", "mysql"
	DSN   string
	Table string // dotted names are quoted per segment
	// BatchSize bounds the rows sent per CopyFrom call.
	BatchSize int
	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreateTable bool
	// Truncate deletes existing rows before loading.
	Truncate bool
}

// Repository is the minimal surface the loader needs from a backend.
type Repository interface {
	// CopyFrom inserts rows aligned to columns into the configured table and
	// returns the number of rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
