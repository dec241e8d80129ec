// Package store persists accepted webhook events to SQLite. The ledger is
// append-only; delivery to subscribers never depends on a successful write.
package store
