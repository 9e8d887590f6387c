// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// CREATE TABLE statements from it through a Dialect.
//
// A TableDef is normally derived from a Record Table with FromTable; each
// storage backend supplies the Dialect that quotes identifiers and maps
// column kinds to its SQL types.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement.
//
// Rules:
//
//   - t.FQN must be non-empty; each dotted segment is quoted separately.
//
//   - Each column must have a non-empty Name.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL]
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (<col1>, <col2>, ...) clause.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	if d.Quote == nil || d.MapType == nil {
		return "", fmt.Errorf("ddl: incomplete dialect")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(d.MapType(c.Kind))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		d.QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDeleteAllSQL renders a statement that empties the table.
func BuildDeleteAllSQL(fqn string, d Dialect) string {
	return "DELETE FROM " + d.QuoteFQN(fqn)
}
