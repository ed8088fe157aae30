package gitsel

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Mode selects between reviewing only changed files and the whole tree.
type Mode string

const (
	ModeDiffOnly Mode = "diff-only"
	ModeFullScan Mode = "full-scan"
)

// gitTimeout bounds every git subprocess invocation.
const gitTimeout = 60 * time.Second

// zeroSHA is the "before" value git sends for branch creation pushes.
const zeroSHA = "0000000000000000000000000000000000000000"

// diffFilter keeps added, copied, modified, renamed, and type-changed entries.
const diffFilter = "--diff-filter=ACMRT"

// Hints carry CI context used to pick a diff strategy. Empty fields disable
// the corresponding strategy.
type Hints struct {
	BaseRef string // PR base branch name
	Before  string // pre-push commit SHA
}

// runGitFunc runs a git command and returns its stdout. Tests substitute it.
type runGitFunc func(ctx context.Context, args ...string) (string, error)

// Selector resolves the candidate file list for a run using an ordered chain
// of git strategies. Every strategy failure is soft: the chain advances until
// full enumeration, which is also the terminal step for full-scan mode.
// Results are cached per mode for the Selector's lifetime, since every check
// in a run queries the same underlying git state.
type Selector struct {
	hints Hints
	cache map[Mode][]string
	git   runGitFunc
}

// New creates a Selector with an empty cache.
func New(hints Hints) *Selector {
	return &Selector{
		hints: hints,
		cache: make(map[Mode][]string),
		git:   runGit,
	}
}

// Select returns the candidate files for the given mode. It never returns an
// error: if every strategy fails, the result is the full tracked-file list,
// and if even that fails, an empty list.
func (s *Selector) Select(ctx context.Context, mode Mode) []string {
	if cached, ok := s.cache[mode]; ok {
		return cached
	}
	var files []string
	if mode == ModeDiffOnly {
		files = s.changedFiles(ctx)
	} else {
		files = s.allTrackedFiles(ctx)
	}
	s.cache[mode] = files
	return files
}

// changedFiles walks the strategy chain: PR-base diff, push diff (with one
// fetch-and-retry), HEAD~1, then full enumeration.
func (s *Selector) changedFiles(ctx context.Context) []string {
	if s.hints.BaseRef != "" {
		if files, ok := s.prBaseDiff(ctx); ok {
			return files
		}
	}
	if s.hints.Before != "" && s.hints.Before != zeroSHA {
		if files, ok := s.pushDiff(ctx); ok {
			return files
		}
	}
	if files, ok := s.headDiff(ctx); ok {
		return files
	}
	slog.Warn("all git diff strategies failed, scanning all tracked files")
	return s.allTrackedFiles(ctx)
}

func (s *Selector) prBaseDiff(ctx context.Context) ([]string, bool) {
	base := s.hints.BaseRef
	slog.Info("git context: pull request", "base", base)
	// Shallow CI checkouts usually lack the base ref.
	if _, err := s.git(ctx, "fetch", "origin", base, "--depth=1"); err != nil {
		slog.Debug("base ref fetch failed", "base", base, "error", err)
	}
	out, err := s.git(ctx, "diff", "--name-only", diffFilter, "origin/"+base+"...HEAD")
	if err != nil {
		slog.Debug("PR base diff failed", "error", err)
		return nil, false
	}
	files := splitLines(out)
	slog.Info("changed files from PR diff", "base", base, "count", len(files))
	return files, true
}

func (s *Selector) pushDiff(ctx context.Context) ([]string, bool) {
	before := s.hints.Before
	slog.Info("git context: push", "before", shortSHA(before))
	out, err := s.git(ctx, "diff", "--name-only", diffFilter, before+"...HEAD")
	if err == nil {
		files := splitLines(out)
		slog.Info("changed files from push diff", "count", len(files))
		return files, true
	}

	// A shallow clone may not contain the before commit. Fetch it and retry
	// the diff exactly once.
	slog.Debug("push diff failed, fetching before-SHA", "error", err)
	if _, err := s.git(ctx, "fetch", "origin", before, "--depth=1"); err != nil {
		slog.Debug("before-SHA fetch failed", "error", err)
	}
	out, err = s.git(ctx, "diff", "--name-only", diffFilter, before+"...HEAD")
	if err != nil {
		slog.Debug("push diff failed after fetch", "error", err)
		return nil, false
	}
	files := splitLines(out)
	slog.Info("changed files from push diff after fetch", "count", len(files))
	return files, true
}

func (s *Selector) headDiff(ctx context.Context) ([]string, bool) {
	slog.Info("git context: fallback", "range", "HEAD~1")
	out, err := s.git(ctx, "diff", "--name-only", diffFilter, "HEAD~1")
	if err != nil {
		slog.Debug("HEAD~1 diff failed", "error", err)
		return nil, false
	}
	files := splitLines(out)
	slog.Info("changed files from HEAD~1 diff", "count", len(files))
	return files, true
}

func (s *Selector) allTrackedFiles(ctx context.Context) []string {
	out, err := s.git(ctx, "ls-files")
	if err != nil {
		slog.Warn("git ls-files failed, no files to analyze", "error", err)
		return nil
	}
	files := splitLines(out)
	slog.Info("tracked files from full enumeration", "count", len(files))
	return files
}

// runGit executes a git subprocess bounded by gitTimeout. A nonzero exit or
// timeout surfaces as an error, which callers treat as a soft strategy
// failure.
func runGit(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, firstLine(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

func splitLines(out string) []string {
	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
