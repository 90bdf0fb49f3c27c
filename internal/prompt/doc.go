// Package prompt loads and renders prompt templates.
//
// Every template carries exactly one {content} marker. The base template
// frames the user's document; the split wrapper frames one chunk prompt and
// the merge wrapper frames the combined chunk answers. Default wrappers and a
// sample base template are embedded in the binary.
package prompt
