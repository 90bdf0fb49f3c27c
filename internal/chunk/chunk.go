// Package chunk partitions text into fixed-size character windows.
//
// Lengths are counted in Unicode code points so a multi-byte sequence is
// never cut. Splitting ignores word and sentence boundaries.
package chunk

import "unicode/utf8"

// Len returns the number of characters in text.
func Len(text string) int {
	return utf8.RuneCountInString(text)
}

// Count returns how many chunks Split produces for a text of textLen
// characters.
func Count(textLen, maxChunkLen int) int {
	if textLen <= 0 {
		return 0
	}
	if maxChunkLen < 1 {
		maxChunkLen = 1
	}
	return (textLen + maxChunkLen - 1) / maxChunkLen
}

// Split returns contiguous, non-overlapping windows of maxChunkLen characters.
// The final window may be shorter. Empty text yields nil; maxChunkLen below 1
// is treated as 1.
func Split(text string, maxChunkLen int) []string {
	if text == "" {
		return nil
	}
	if maxChunkLen < 1 {
		maxChunkLen = 1
	}
	chunks := make([]string, 0, Count(Len(text), maxChunkLen))
	start, n := 0, 0
	for i := range text {
		if n == maxChunkLen {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, text[start:])
}
