package report

import (
	"github.com/dexterite/prguard/internal/findings"
	"github.com/dexterite/prguard/internal/redact"
)

// SanitizeResults returns a deep copy of results with secret-looking text
// redacted from every finding field and summary.
func SanitizeResults(results []findings.CheckResult) []findings.CheckResult {
	out := make([]findings.CheckResult, len(results))
	for i, res := range results {
		clean := res
		clean.Summary = redact.Secrets(res.Summary)
		clean.Findings = make([]findings.Finding, len(res.Findings))
		for j, f := range res.Findings {
			f.Title = redact.Secrets(f.Title)
			f.Description = redact.Secrets(f.Description)
			f.Suggestion = redact.Secrets(f.Suggestion)
			clean.Findings[j] = f
		}
		out[i] = clean
	}
	return out
}
