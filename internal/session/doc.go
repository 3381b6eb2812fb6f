// Package session orchestrates clip submissions and the session history view.
//
// A submission runs register, upload, analyze as one cancellable sequence;
// each step feeds the next with the server's authoritative IDs. Starting a new
// submission supersedes any in-flight one, and a superseded submission's
// completion never touches shared state. Selection fetches carry sequence
// numbers so a slow response for an older selection is discarded instead of
// overwriting a newer one.
//
// All state mutation is copy-on-write behind a single mutex: a Snapshot taken
// at any moment is a consistent view that later mutations cannot alter.
package session
