// Package logging assembles structured slog loggers and formatting helpers used
// across splitmerge.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so pipeline code can automatically tag log
// lines with run IDs, stages, and chunk positions. Logs are written to stderr
// and teed as JSON into a daily file under the state directory, so stdout stays
// reserved for completion text. Old daily files are pruned on startup. The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
