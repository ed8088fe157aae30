// Package config loads and merges prguard configuration from multiple
// sources.
//
// Precedence (highest to lowest):
//  1. CLI flags (applied by the caller of [Load])
//  2. User config file (prguard.config.yml, .prguard.yml, or an explicit path)
//  3. Environment variables (PRGUARD_API_KEY, PRGUARD_MODEL, etc.)
//  4. Built-in defaults
//
// The YAML config file may also carry a checks section with per-check
// overrides (enable/disable, pattern additions, extra prompt instructions).
package config
