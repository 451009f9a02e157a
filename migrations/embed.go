// Package migrations embeds the hvpsu SQL schema into the binary.
//
// Files follow the YYYYMMDD_HHMMSS_description.{up,down}.sql convention
// understood by database.DB.Migrate.
package migrations

import "embed"

// FS holds every migration file at its root.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS that holds the migrations.
const Dir = "."
