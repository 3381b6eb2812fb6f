// Package api implements the typed HTTP client for the ClipNotes backend.
//
// Every call takes a context and returns either a decoded payload or an error.
// Non-2xx responses are decoded through the standard error envelope into
// *Error, which carries the HTTP status plus the human-readable message,
// detail, and remediation strings the backend provides. Malformed error bodies
// degrade to a generic message that names the status code rather than failing
// the decode.
//
// The client performs no retries; cancellation propagates through the request
// context and surfaces as context.Canceled.
package api
