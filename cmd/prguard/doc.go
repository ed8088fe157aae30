// PRGuard is an AI-powered code review tool for pull requests and CI.
//
// It selects the changed files (or the whole tracked tree), runs each
// enabled review check through an OpenAI-compatible model, and ships the
// structured findings to CI surfaces with deterministic exit codes.
//
// Usage:
//
//	prguard run                              # review changed files with all checks
//	prguard run --checks sast,secret-detection
//	prguard run --full-scan --format sarif   # scan everything, emit SARIF
//	prguard checks list                      # list available checks
//
// See https://github.com/dexterite/prguard for full documentation.
package main
