// Package checks discovers and loads check definitions: a system prompt
// (prompt.md) plus file-matching configuration (config.yml) per check.
// Built-in checks are embedded in the binary; a custom checks directory can
// add new checks or shadow built-ins, and user overrides can enable, disable,
// refine, or extend any check.
package checks
