// Package aiclient talks to an OpenAI-compatible chat-completions endpoint.
//
// The Client paces itself with a base delay plus an adaptive penalty that
// ramps on 429 responses and decays on success, and drives each call through
// a small retry state machine: rate limits and server errors retry with
// backoff, auth failures and oversized payloads fail fast with typed errors,
// and exhausted retries surface the last observed cause.
//
// Parse recovers a structured result from raw model text without ever
// failing: fenced JSON, bare JSON, and brace-delimited substrings are tried
// in order before falling back to a synthetic parse-error finding. Decoded
// replies are checked against an explicit JSON schema at this boundary.
package aiclient
