package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dexterite/prguard/internal/findings"
)

// TextWriter outputs a human-readable terminal report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}

	total := report.TotalFindings()
	ew.printf("PRGuard Code Review — %s mode (model: %s)\n", report.Mode, report.Model)
	ew.println(strings.Repeat("─", 60))
	ew.println(summaryTable(report))
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
		return ew.err
	}

	for _, res := range report.Results {
		ew.printf("\n%s — %s\n", res.Check, res.Summary)
		if len(res.Findings) == 0 {
			continue
		}
		ew.println(findingsTable(res.Findings))
	}

	return ew.err
}

// summaryTable renders the per-check severity counts.
func summaryTable(report *Report) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Check", "Files", "Critical", "High", "Medium", "Low", "Info"})
	for _, res := range report.Results {
		counts := findings.CountBySeverity([]findings.CheckResult{res})
		tbl.AppendRow(table.Row{
			res.Check,
			res.FilesAnalyzed,
			counts[findings.SeverityCritical],
			counts[findings.SeverityHigh],
			counts[findings.SeverityMedium],
			counts[findings.SeverityLow],
			counts[findings.SeverityInfo],
		})
	}
	tbl.AppendFooter(table.Row{"Total", "", "", "", "", "", report.TotalFindings()})
	return tbl.Render()
}

// findingsTable renders one check's findings sorted as the runner left them.
func findingsTable(fs []findings.Finding) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.AppendHeader(table.Row{"Severity", "Location", "Title"})
	for _, f := range fs {
		tbl.AppendRow(table.Row{
			strings.ToUpper(string(findings.Normalize(f.Severity))),
			location(f),
			f.Title,
		})
	}
	return tbl.Render()
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
