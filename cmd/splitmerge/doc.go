// Package main hosts the splitmerge CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once per invocation, builds the
// structured logger, and hands work to the internal runner. Completions go to
// stdout; logs and status lines go to stderr so output can be piped.
//
// Keep command handlers thin: new behavior belongs in the internal packages
// and is surfaced here through flags or subcommands.
package main
