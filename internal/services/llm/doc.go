// Package llm provides the chat completions client used by the stage
// services. It speaks the OpenRouter-compatible wire format and retries
// transient failures with exponential backoff.
package llm
