// Package convcache persists chat exchanges for clip selections in a bounded
// local SQLite database.
//
// Exchanges are keyed by a selection hash, a stable digest of the clip ID set,
// so the same clips always map to the same conversation regardless of the
// order they were chosen in. The cache is pruned on every append to a
// per-selection cap and a global cap; oldest rows go first. A file lock next
// to the database keeps concurrent processes from racing schema setup.
package convcache
