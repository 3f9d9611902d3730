// Package history records an audit trail of cleanup runs: when a run
// happened, against which environment, whether it was destructive, what
// was decided for each cookbook and every delete call it made.
//
// Two SQLite drivers are supported through database/sql: "sqlite3"
// (github.com/mattn/go-sqlite3, requires cgo) and "sqlite"
// (modernc.org/sqlite, pure Go). The "memory" driver keeps history for
// the lifetime of the process only.
package history
