package migrations

import "embed"

// FS embeds the SQL migrations for the SQLite store. Files are named
// NNN_description.sql and applied in version order.
//
//go:embed *.sql
var FS embed.FS
