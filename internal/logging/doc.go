// Package logging constructs slog loggers for the clipnotes client.
//
// Two output formats are supported: a human-oriented console handler with
// optional color when stderr is a terminal, and line-delimited JSON for log
// files. Helpers create component-scoped loggers and a no-op logger for tests.
package logging
