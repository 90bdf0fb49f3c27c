// Package retry runs an operation under a bounded, linearly backed-off
// attempt budget.
//
// Only results the caller marks as retryable are re-attempted; returned
// errors end the loop immediately. Exhaustion is not an error: the last
// retryable result is handed back so the caller can report it as final.
package retry
