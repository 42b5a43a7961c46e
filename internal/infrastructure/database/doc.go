// Package database provides SQLite connection management and schema
// migrations for geb-core.
//
// The service runs two separate databases through this package: the main
// store (users, track metadata, audit logs) and the file store (track
// payloads). Each is opened with Open and migrated with Migrate, which takes
// the embedded migration set for that database.
//
// Connections are configured for SQLite's single-writer model: WAL mode for
// concurrent reads, a busy timeout to ride out lock contention, and a pool
// capped at one open connection.
package database
