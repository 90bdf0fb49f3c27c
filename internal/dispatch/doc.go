// Package dispatch sends one prompt to the provider and classifies the answer
// as Completed, Exceeded or Overloaded.
//
// Expected provider conditions (rate limiting, context-window overflow) are
// values, not errors. Only unrecognised provider failures, empty responses and
// context-length messages without parseable token counts are returned as
// errors. Provider-specific error shapes are isolated behind ErrorClassifier.
package dispatch
