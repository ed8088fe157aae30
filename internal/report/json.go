package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dexterite/prguard/internal/findings"
)

// JSONWriter outputs the full report as JSON.
type JSONWriter struct{}

type jsonReport struct {
	*Report
	Summary jsonSummary `json:"summary"`
}

type jsonSummary struct {
	TotalFindings    int            `json:"total_findings"`
	CountsBySeverity map[string]int `json:"counts_by_severity"`
}

func (j *JSONWriter) Write(w io.Writer, report *Report) error {
	counts := make(map[string]int)
	for sev, n := range findings.CountBySeverity(report.Results) {
		counts[string(sev)] = n
	}
	out := jsonReport{
		Report: report,
		Summary: jsonSummary{
			TotalFindings:    report.TotalFindings(),
			CountsBySeverity: counts,
		},
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
