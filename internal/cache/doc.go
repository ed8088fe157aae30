// Package cache provides a file-based cache for model responses.
//
// Cache entries are keyed by a SHA-256 hash of the model name, the check
// prompt, and the batch content. Each entry stores the raw model response
// string with a creation timestamp and a TTL in seconds. Expired entries
// are skipped on read and removed lazily.
//
// The default cache directory is $XDG_CACHE_HOME/prguard (or the
// OS-appropriate equivalent).
package cache
