// Package redact removes secrets from finding text before a report is
// rendered or shipped anywhere.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, and provider-specific tokens (Anthropic, OpenAI, GitHub, Slack).
package redact
