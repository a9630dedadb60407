// Package storage persists schema documents, worked examples, and a
// retrieval log in SQLite. It is a durability layer only: the engine
// answers every query from in-memory indices, and the store exists so
// a restarted server can reload the active schema and its examples.
//
// Two drivers are supported, selected at build time. The default pure
// Go driver (modernc.org/sqlite) needs no C toolchain; building with
// the sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
//
// Migrations are versioned with semver and applied on open. Rolling
// forward is automatic; RollbackMigration exists for operator use.
package storage
