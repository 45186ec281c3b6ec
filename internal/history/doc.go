// Package history persists download job outcomes in SQLite.
//
// Every orchestrator run inserts a running record keyed by its job UUID and
// finishes it as completed or failed with the services.Kind of the error.
// The CLI `history` and `status` commands read it back. Records left running
// by a crashed process are closed out as failed by MarkInterrupted.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package history
