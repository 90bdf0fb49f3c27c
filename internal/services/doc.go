// Package services defines shared utilities consumed by the split/merge
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and chunk positions for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that keep configuration
//     failures distinguishable from provider failures at the reporting layer.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform.
package services
