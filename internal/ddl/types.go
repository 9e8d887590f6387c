package ddl

import "saftetl/internal/table"

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column identifier (unquoted; quoting happens at render time)
//   - Source: the table column the values come from
//   - Kind: the logical kind the dialect maps to a SQL type
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Source     string
	Kind       table.Kind
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name (FQN, dotted form allowed) and an ordered list
// of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Names returns the column identifiers in order.
func (t TableDef) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Sources returns the source table columns in order.
func (t TableDef) Sources() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Source
	}
	return out
}

// Dialect adapts rendering to a SQL backend.
type Dialect struct {
	// Quote quotes a single identifier segment.
	Quote func(string) string
	// MapType returns the SQL type for a column kind.
	MapType func(table.Kind) string
}

// QuoteFQN quotes each dot-separated segment of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := splitFQN(name)
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return joinFQN(parts)
}

// FromTable derives a definition for loading t into the table fqn. Column
// names are normalized with Ident and made unique; every column is nullable.
func FromTable(fqn string, t *table.Table) TableDef {
	cols := t.Columns()
	names := UniqueIdents(cols)
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = ColumnDef{Name: names[i], Source: c, Kind: t.Kind(c), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: defs}
}
