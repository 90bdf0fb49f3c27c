// Package history keeps a SQLite ledger of orchestration runs.
//
// Each run records its identifier, timing, model, the size and BLAKE3 digest
// of the content, the final status and phase, and the chunking figures. Prompt
// text and chunk answers are never stored.
//
// Schema changes bump historySchemaVersion in schema.go; users clear the
// database to adopt the new schema.
package history
