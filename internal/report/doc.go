// Package report formats review results for display or machine consumption.
//
// Four formats are supported:
//   - markdown — PR-comment-friendly with collapsible sections per check
//   - json     — full structured JSON report with severity summary
//   - sarif    — SARIF v2.1.0 for upload to GitHub code scanning
//   - text     — human-readable terminal output
//
// Use [GetWriter] to obtain a [Writer] for a format string, or [Render] to
// get the sanitized report as a string. Finding text is passed through the
// redact package before rendering.
package report
