// Package gitsel determines which files a run should consider, using an
// ordered chain of git subprocess strategies with graceful fallback:
//
//  1. PR-base diff (when a base branch hint is present)
//  2. push diff against the pre-push commit, with one shallow fetch retry
//  3. diff against HEAD~1
//  4. full tracked-file enumeration via git ls-files
//
// Every subprocess call is bounded by a 60-second timeout. A timeout or
// nonzero exit advances the chain rather than failing the run. The selected
// list is cached per mode for the lifetime of a Selector.
package gitsel
