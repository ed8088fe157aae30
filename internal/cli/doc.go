// Package cli wires together the Cobra command tree for the prguard binary.
//
// It defines the root command and its subcommands (run, checks, version),
// binds flags, loads configuration, invokes the review runner, and returns
// deterministic exit codes for CI gating.
package cli
