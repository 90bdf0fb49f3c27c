// Package splitmerge answers a prompt whose content may not fit the model's
// context window.
//
// The rendered prompt is dispatched once. When the provider reports the
// window was exceeded, the reported token usage is turned into a character
// budget, the content is cut into chunks, and every chunk is dispatched
// inside the base template and the split wrapper. Once all chunks have
// settled, their answers are joined in order behind the raw base template,
// wrapped in the merge wrapper and dispatched one final time.
//
// Partial success is never promoted: a single chunk that does not complete
// abandons the merge and Run returns a *ChunkFailureError. An Exceeded merge
// is reported as the final outcome; merged content is not split again.
package splitmerge
