// Package config loads, normalizes, and validates the clipnotes client
// configuration.
//
// Configuration lives in a TOML file (default ~/.config/clipnotes/config.toml)
// with sections for backend connectivity, chat history limits, local cache
// bounds, and logging. Load expands ~ in paths, applies environment overrides
// for secrets, and rejects unusable values before any command runs.
//
// Treat this package as the single source of truth for defaults; new settings
// get a default in defaults.go, normalization in normalize.go, and a check in
// validate.go.
package config
