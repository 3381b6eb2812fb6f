// Package reasoning coordinates two-clip comparisons and normalizes the
// loosely structured payloads the reasoning service returns.
//
// The service frequently wraps its JSON in markdown fences, embeds it inside
// narrative text, mistypes confidence as a string, and aliases field names.
// Normalize is a pure, total function that recovers as much structure as it
// can and degrades to the raw fields when it cannot; it never fails.
package reasoning
