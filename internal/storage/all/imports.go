// Package all wires the built-in storage backends into the storage factory.
//
// Importing it for side effects registers the "sqlite", "postgres" and
// "mysql" kinds and their DDL dialects:
//
//	import _ "saftetl/internal/storage/all"
//
//	n, err := storage.Load(ctx, storage.Config{Kind: "sqlite", DSN: "saft.db", Table: "vendas"}, t)
//
// Binaries that need only one backend can import that package directly.
package all

import (
	_ "saftetl/internal/storage/mysql"
	_ "saftetl/internal/storage/postgres"
	_ "saftetl/internal/storage/sqlite"
)
