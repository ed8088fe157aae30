package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dexterite/prguard/internal/aiclient"
	"github.com/dexterite/prguard/internal/batch"
	"github.com/dexterite/prguard/internal/cache"
	"github.com/dexterite/prguard/internal/checks"
	"github.com/dexterite/prguard/internal/collect"
	"github.com/dexterite/prguard/internal/findings"
	"github.com/dexterite/prguard/internal/gitsel"
)

// maxFailureFiles caps how many batch member paths a failure finding lists.
const maxFailureFiles = 5

// Analyzer is the model call surface. *aiclient.Client is the production
// implementation.
type Analyzer interface {
	Analyze(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// ResponseCache stores raw model responses keyed by request content.
// *cache.Cache is the production implementation.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, response string) error
}

// Collector selects and reads files for a check. *collect.Collector is the
// production implementation.
type Collector interface {
	Collect(ctx context.Context, opts collect.Options) []string
	ReadContent(path string, maxLines int) (content string, truncated bool)
}

// Options configure one run across all checks.
type Options struct {
	Mode             gitsel.Mode
	Model            string
	MaxFileSizeKB    int
	MaxContextTokens int
	GlobalExcludes   []string
	MaxLines         int
}

// Runner executes each enabled check against the selected files, batching
// content under the model's context budget and aggregating the structured
// results.
type Runner struct {
	collector Collector
	planner   *batch.Planner
	ai        Analyzer
	cache     ResponseCache
	opts      Options
}

// New creates a Runner.
func New(collector Collector, ai Analyzer, opts Options) *Runner {
	return &Runner{
		collector: collector,
		planner:   batch.NewPlanner(collector, opts.MaxLines),
		ai:        ai,
		opts:      opts,
	}
}

// WithCache enables response caching for the run.
func (r *Runner) WithCache(c ResponseCache) *Runner {
	r.cache = c
	return r
}

// Run executes every check definition in order and returns one CheckResult
// per check. Any batch that fails analysis, authentication failures
// included, is recorded as a synthetic finding on its check rather than
// failing the run, so completed checks always make it into the report. The
// only early exit is context cancellation, which returns the results
// gathered so far alongside the context error.
func (r *Runner) Run(ctx context.Context, defs []checks.Definition) ([]findings.CheckResult, error) {
	results := make([]findings.CheckResult, 0, len(defs))
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.runCheck(ctx, def))
	}
	return results, nil
}

func (r *Runner) runCheck(ctx context.Context, def checks.Definition) findings.CheckResult {
	files := r.collector.Collect(ctx, collect.Options{
		Include:       def.Config.FilePatterns,
		Exclude:       append(append([]string{}, def.Config.ExcludePatterns...), r.opts.GlobalExcludes...),
		MaxFileSizeKB: r.opts.MaxFileSizeKB,
		Mode:          r.opts.Mode,
	})
	if len(files) == 0 {
		slog.Info("check skipped, no matching files", "check", def.Name)
		return findings.CheckResult{
			Check:    def.Name,
			Findings: []findings.Finding{},
			Summary:  "No matching files found.",
		}
	}

	batches := r.planner.Plan(files, r.opts.MaxContextTokens)
	slog.Info("running check", "check", def.Name, "files", len(files), "batches", len(batches))

	var all []findings.Finding
	var authErr error
	for i, b := range batches {
		var raw string
		var err error
		if authErr != nil {
			// Credentials already rejected; the remaining batches of this
			// check would fail identically, so skip the calls.
			err = authErr
		} else {
			raw, err = r.analyzeBatch(ctx, def.Prompt, buildUserMessage(b.Files))
		}
		if err != nil {
			if aiclient.IsAuthError(err) {
				authErr = err
			}
			slog.Warn("batch analysis failed", "check", def.Name, "batch", i+1, "error", err)
			all = append(all, failureFinding(def.Name, i+1, len(batches), b, err))
			continue
		}
		parsed := aiclient.Parse(raw)
		for _, f := range parsed.Findings {
			if f.Check == "" {
				f.Check = def.Name
			}
			all = append(all, f)
		}
	}

	findings.SortBySeverity(all)
	if all == nil {
		all = []findings.Finding{}
	}
	return findings.CheckResult{
		Check:         def.Name,
		FilesAnalyzed: len(files),
		Findings:      all,
		Summary:       fmt.Sprintf("Analyzed %d file(s), found %d issue(s).", len(files), len(all)),
	}
}

// analyzeBatch calls the model, short-circuiting through the response cache
// when one is configured.
func (r *Runner) analyzeBatch(ctx context.Context, systemPrompt, userContent string) (string, error) {
	var key string
	if r.cache != nil {
		key = cache.BuildKey(r.opts.Model, systemPrompt, userContent)
		if raw, ok := r.cache.Get(key); ok {
			slog.Debug("cache hit, skipping model call")
			return raw, nil
		}
	}
	raw, err := r.ai.Analyze(ctx, systemPrompt, userContent)
	if err != nil {
		return "", err
	}
	if r.cache != nil {
		if err := r.cache.Put(key, raw); err != nil {
			slog.Debug("cache write failed", "error", err)
		}
	}
	return raw, nil
}

// buildUserMessage assembles the per-batch request: response contract first,
// then each file under a header the model can cite back.
func buildUserMessage(files []batch.File) string {
	var sb strings.Builder
	sb.WriteString(`Analyze the following files and respond with a single JSON object in exactly this format:

{
  "findings": [
    {
      "severity": "high",
      "category": "category-name",
      "title": "Short issue title",
      "description": "What the issue is and why it matters.",
      "file": "path/to/file",
      "line": 42,
      "suggestion": "How to fix it."
    }
  ],
  "summary": "One-paragraph overview of the analysis."
}

Allowed severity values: critical, high, medium, low, info.
If there are no issues, respond with {"findings": [], "summary": "No issues found."}.
`)
	for _, f := range files {
		sb.WriteString("\n### FILE: ")
		sb.WriteString(f.Path)
		sb.WriteString("\n\n")
		sb.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// failureFinding records an unanalyzed batch as a medium finding so the
// gap is visible in the report instead of silently shrinking coverage.
func failureFinding(check string, n, total int, b batch.Batch, err error) findings.Finding {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The AI request for this batch failed after retries: %v\n\n", err)
	sb.WriteString("Remediation: ")
	sb.WriteString(classifyFailure(err.Error()))
	sb.WriteString("\n\nFiles in this batch:\n")
	for i, f := range b.Files {
		if i == maxFailureFiles {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(b.Files)-maxFailureFiles)
			break
		}
		fmt.Fprintf(&sb, "- %s\n", f.Path)
	}
	return findings.Finding{
		Check:       check,
		Severity:    findings.SeverityMedium,
		Category:    "analysis-error",
		Title:       fmt.Sprintf("AI analysis failed (batch %d/%d)", n, total),
		Description: sb.String(),
		File:        b.Files[0].Path,
	}
}

// classifyFailure maps an error message to a remediation hint.
func classifyFailure(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return "The API rate limit was hit repeatedly. Increase request_delay_ms or reduce the number of files per run."
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") || strings.Contains(lower, "deadline"):
		return "The request timed out. Lower max_context_tokens so batches are smaller, or raise request_timeout_s."
	case strings.Contains(lower, "connection") || strings.Contains(lower, "connect:"):
		return "Could not reach the API endpoint. Check api_base_url and network access from the runner."
	case strings.Contains(lower, "authentication") || strings.Contains(lower, "401") || strings.Contains(lower, "403"):
		return "The API rejected the credentials. Verify api_key (or PRGUARD_API_KEY) is set and valid."
	default:
		return "Inspect the error detail above; re-run with --debug for the full request log."
	}
}
