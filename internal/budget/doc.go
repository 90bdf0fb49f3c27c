// Package budget converts the token accounting of a rejected request into a
// per-chunk character budget.
package budget
