// Package migrations embeds SQL migration files into the binary.
//
// This allows geb-core to run migrations without needing the SQL files
// present on the filesystem - they're compiled into the executable.
// Each database has its own migration set: main/ for the metadata store
// (users, tracks, audit) and files/ for the payload store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed main/*.sql files/*.sql
var migrationsFS embed.FS

// Main returns the migration set for the main (metadata) database.
func Main() fs.FS {
	sub, err := fs.Sub(migrationsFS, "main")
	if err != nil {
		panic(err) // embed layout is fixed at compile time
	}
	return sub
}

// Files returns the migration set for the file store database.
func Files() fs.FS {
	sub, err := fs.Sub(migrationsFS, "files")
	if err != nil {
		panic(err) // embed layout is fixed at compile time
	}
	return sub
}
