// Package collect turns git candidate lists into the final per-check file
// set: binary and generated files are dropped by extension, include and
// exclude globs are applied (a fixed baseline exclude set plus check and
// global patterns), oversized and binary-content files are rejected, and the
// survivors are returned sorted and deduplicated. Rejections are tallied by
// reason into a single diagnostic log line rather than logged individually.
package collect
