// Package llm provides an OpenAI-compatible chat completion client.
//
// The client speaks to either the public OpenAI endpoint (or any compatible
// base URL) or an Azure OpenAI deployment when an Azure endpoint is
// configured. It is deliberately thin: one HTTP request per Complete call,
// no retries, and no interpretation of finish reasons. Overload and
// context-length handling belongs to the dispatch layer.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send messages, receive choices and token usage.
// Client.HealthCheck: verify API key and model availability.
//
// # Errors
//
// Non-2xx responses surface as *APIError carrying the HTTP status, the
// provider's machine-readable code (e.g. "context_length_exceeded") and the
// human-readable message. Transport failures are wrapped with the request
// timeout for context.
package llm
