// Package runner wires configuration, prompt templates, the provider client,
// the retrying dispatcher and the split/merge orchestrator into a single run.
//
// A run optionally holds an exclusive lock on the state directory, assigns a
// run ID that is stamped on every log line, and records its outcome in the
// history ledger.
package runner
