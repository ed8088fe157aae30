package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dexterite/prguard/internal/findings"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	counts := findings.CountBySeverity(report.Results)
	total := report.TotalFindings()

	fmt.Fprintf(w, "## PRGuard Code Review\n\n")
	fmt.Fprintf(w, "*Model: %s | Mode: %s | Checks: %d*\n\n", report.Model, report.Mode, len(report.Results))

	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	for _, sev := range findings.AllSeverities {
		fmt.Fprintf(w, "| %s | %d |\n", titleCase(string(sev)), counts[sev])
	}
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", total)

	if total == 0 {
		fmt.Fprintln(w, "No issues found. :white_check_mark:")
		return nil
	}

	for _, res := range report.Results {
		if len(res.Findings) == 0 {
			continue
		}
		fmt.Fprintf(w, "<details>\n<summary><strong>%s</strong> (%d finding(s), %d file(s) analyzed)</summary>\n\n",
			res.Check, len(res.Findings), res.FilesAnalyzed)

		grouped := groupBySeverity(res.Findings)
		for _, sev := range findings.AllSeverities {
			group := grouped[sev]
			if len(group) == 0 {
				continue
			}
			sort.SliceStable(group, func(i, j int) bool { return group[i].File < group[j].File })
			for _, f := range group {
				fmt.Fprintf(w, "### %s %s\n\n", severityIcon(sev), f.Title)
				fmt.Fprintf(w, "**`%s`** | %s | %s\n\n", location(f), titleCase(string(sev)), f.Category)
				if f.Description != "" {
					fmt.Fprintf(w, "%s\n\n", f.Description)
				}
				if f.Suggestion != "" {
					fmt.Fprintf(w, "**Suggestion:**\n\n> %s\n\n",
						strings.ReplaceAll(f.Suggestion, "\n", "\n> "))
				}
				fmt.Fprintf(w, "---\n\n")
			}
		}
		fmt.Fprintf(w, "</details>\n\n")
	}

	return nil
}

func groupBySeverity(fs []findings.Finding) map[findings.Severity][]findings.Finding {
	m := make(map[findings.Severity][]findings.Finding)
	for _, f := range fs {
		m[findings.Normalize(f.Severity)] = append(m[findings.Normalize(f.Severity)], f)
	}
	return m
}

func location(f findings.Finding) string {
	switch {
	case f.File == "":
		return "unknown"
	case f.Line > 0:
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	default:
		return f.File
	}
}

func severityIcon(s findings.Severity) string {
	switch s {
	case findings.SeverityCritical:
		return ":no_entry:"
	case findings.SeverityHigh:
		return ":red_circle:"
	case findings.SeverityMedium:
		return ":orange_circle:"
	case findings.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
