// Package mysql implements a MySQL-backed storage.Repository with
// go-sql-driver/mysql. Batches are written as one multi-row INSERT inside a
// transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"saftetl/internal/ddl"
	"saftetl/internal/table"
)

// maxPlaceholders stays under the server's 65535 prepared-statement limit.
const maxPlaceholders = 60000

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // go-sql-driver DSN, e.g. "user:pass@tcp(localhost:3306)/saft"
	Table string
}

// Dialect renders MySQL DDL.
var Dialect = ddl.Dialect{
	Quote: func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
	MapType: func(k table.Kind) string {
		switch k {
		case table.KindInt:
			return "BIGINT"
		case table.KindFloat:
			return "DOUBLE"
		case table.KindTime:
			return "DATETIME"
		default:
			return "TEXT"
		}
	},
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses the DSN, forces parseTime so DATETIME columns scan
// into time.Time, and opens a pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	dc.ParseTime = true
	if dc.Loc == nil {
		dc.Loc = time.UTC
	}

	connector, err := mysql.NewConnector(dc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

// insertSQL builds INSERT INTO t (cols) VALUES (?,..),(?,..) for n rows.
func insertSQL(fqn string, columns []string, n int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Dialect.Quote(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", Dialect.QuoteFQN(fqn), strings.Join(quoted, ", "))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// chunkRows returns how many rows fit in one statement.
func chunkRows(width int) int {
	if width <= 0 {
		return 1
	}
	if n := maxPlaceholders / width; n > 0 {
		return n
	}
	return 1
}

// CopyFrom inserts rows in one transaction, splitting the batch so no
// statement exceeds the placeholder limit.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	step := chunkRows(len(columns))
	for start := 0; start < len(rows); start += step {
		end := min(start+step, len(rows))
		args := make([]any, 0, (end-start)*len(columns))
		for _, row := range rows[start:end] {
			if len(row) != len(columns) {
				_ = tx.Rollback()
				return 0, fmt.Errorf("mysql: CopyFrom: row length %d != columns length %d", len(row), len(columns))
			}
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, insertSQL(r.cfg.Table, columns, end-start), args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return int64(len(rows)), nil
}

// Exec executes a single statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}
