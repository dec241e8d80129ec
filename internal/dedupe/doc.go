// Package dedupe provides webhook deduplication using a time-based cache,
// so redelivered updates are acknowledged without being queued twice.
package dedupe
