// Package settings manages the backend-persisted operator configuration with
// optimistic updates.
//
// A save makes the new values visible immediately, then persists them. On
// success the server's authoritative snapshot replaces the optimistic one; on
// failure the pre-save snapshot is restored exactly and the error is kept for
// display. Only one mutation may be pending at a time, tagged with which
// section is in flight so a UI can disable the right control set.
package settings
