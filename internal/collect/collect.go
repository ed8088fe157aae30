package collect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dexterite/prguard/internal/gitsel"
	"github.com/dexterite/prguard/internal/globmatch"
)

// binaryExtensions are always skipped, no matter what the include patterns say.
var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".svg": {}, ".webp": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".otf": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".rar": {}, ".7z": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".pyc": {}, ".pyo": {}, ".class": {}, ".o": {}, ".obj": {},
	".db": {}, ".sqlite": {}, ".sqlite3": {},
	".min.js": {}, ".min.css": {}, ".map": {},
	".wasm": {}, ".parquet": {}, ".avro": {},
}

// DefaultExcludes is the baseline exclude set applied to every check, unioned
// with check-specific and global excludes.
var DefaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/venv/**",
	"**/.venv/**",
	"**/dist/**",
	"**/build/**",
	"**/.next/**",
	"**/coverage/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/*.map",
	"**/*.lock",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/poetry.lock",
	"**/Pipfile.lock",
	"**/go.sum",
	"**/composer.lock",
	"**/.terraform/**",
	"**/.terragrunt-cache/**",
}

// binaryProbeBytes is how much of a file the null-byte heuristic reads.
const binaryProbeBytes = 8192

// DefaultMaxLines caps how many lines of a file are read for analysis.
const DefaultMaxLines = 2000

// Options scope one collection to a check's filters and the run's limits.
type Options struct {
	Include       []string // defaults to ["**/*"]
	Exclude       []string // check-specific plus global excludes
	MaxFileSizeKB int
	Mode          gitsel.Mode
}

// FileSource yields candidate files for a selection mode. *gitsel.Selector
// is the production implementation.
type FileSource interface {
	Select(ctx context.Context, mode gitsel.Mode) []string
}

// Collector filters the selector's candidates down to the files a check will
// analyze. One Collector is created per run; its selector memoizes the git
// candidate list across checks.
type Collector struct {
	sel     FileSource
	matcher *globmatch.Matcher
	root    string
}

// New creates a Collector over the repository rooted at root ("" = cwd).
func New(sel FileSource, root string) *Collector {
	return &Collector{
		sel:     sel,
		matcher: globmatch.New(),
		root:    root,
	}
}

// Collect returns the deduplicated, lexicographically sorted files matching
// the check's criteria. Selection failures never propagate: an empty result
// means nothing to analyze, not an error.
func (c *Collector) Collect(ctx context.Context, opts Options) []string {
	include := opts.Include
	if len(include) == 0 {
		include = []string{"**/*"}
	}
	exclude := make([]string, 0, len(DefaultExcludes)+len(opts.Exclude))
	exclude = append(exclude, DefaultExcludes...)
	exclude = append(exclude, opts.Exclude...)

	candidates := c.sel.Select(ctx, opts.Mode)
	if len(candidates) == 0 {
		slog.Debug("no candidate files returned from git")
		return nil
	}

	skipped := make(map[string]int)
	matched := make(map[string]struct{})

	for _, path := range candidates {
		if _, ok := binaryExtensions[fileExt(path)]; ok {
			skipped["binary_ext"]++
			continue
		}
		if !c.matcher.MatchAny(path, include) {
			skipped["no_pattern_match"]++
			continue
		}
		if c.matcher.MatchAny(path, exclude) {
			skipped["excluded"]++
			continue
		}
		abs := filepath.Join(c.root, path)
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			skipped["not_found"]++
			continue
		}
		if opts.MaxFileSizeKB > 0 && info.Size() > int64(opts.MaxFileSizeKB)*1024 {
			skipped["too_large"]++
			slog.Debug("skipped oversized file",
				"path", path,
				"size", humanize.IBytes(uint64(info.Size())),
				"limit_kb", opts.MaxFileSizeKB)
			continue
		}
		if isBinaryContent(abs) {
			skipped["binary_content"]++
			continue
		}
		matched[path] = struct{}{}
	}

	if len(skipped) > 0 {
		slog.Info("filtered out", "reasons", formatSkipSummary(skipped))
	}

	files := make([]string, 0, len(matched))
	for path := range matched {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// ReadContent reads a file for analysis, capped at maxLines lines. The second
// return value reports whether the content was truncated. Read errors yield a
// placeholder string so a single unreadable file cannot sink a batch.
func (c *Collector) ReadContent(path string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	data, err := os.ReadFile(filepath.Join(c.root, path))
	if err != nil {
		return fmt.Sprintf("(error reading file: %v)", err), false
	}
	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= maxLines {
		return string(data), false
	}
	content := strings.Join(lines[:maxLines], "")
	content += fmt.Sprintf("\n... (truncated, %d more lines)\n", len(lines)-maxLines)
	return content, true
}

// fileExt returns the lowercased extension, handling compound forms like
// .min.js that the plain filepath.Ext would miss.
func fileExt(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, compound := range []string{".min.js", ".min.css"} {
		if strings.HasSuffix(name, compound) {
			return compound
		}
	}
	return filepath.Ext(name)
}

// isBinaryContent reports whether the first 8 KB contains a null byte.
// Unreadable files count as binary.
func isBinaryContent(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	return hasNullByte(f)
}

// hasNullByte reads up to binaryProbeBytes from r, tolerating short reads,
// and reports whether a null byte was seen.
func hasNullByte(r io.Reader) bool {
	buf := make([]byte, binaryProbeBytes)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

func formatSkipSummary(skipped map[string]int) string {
	type entry struct {
		reason string
		count  int
	}
	entries := make([]entry, 0, len(skipped))
	for reason, count := range skipped {
		entries = append(entries, entry{reason, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].reason < entries[j].reason
	})
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%d %s", e.count, e.reason)
	}
	return strings.Join(parts, ", ")
}
