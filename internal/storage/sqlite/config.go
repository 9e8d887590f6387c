// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:saft.db?cache=shared"
	//   "saft.db"
	DSN string

	// Table is the target table. "main.vendas" style names are accepted and
	// each segment is quoted.
	Table string
}
