// Command clipnotes is the CLI for the ClipNotes analysis backend: submitting
// clips, browsing the session history, chatting about clips, comparing two
// clips, and managing backend configuration and keys.
package main
