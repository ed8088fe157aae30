package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dexterite/prguard/internal/findings"
)

// Report is the full outcome of one review run.
type Report struct {
	Tool        string                 `json:"tool"`
	Version     string                 `json:"version"`
	GeneratedAt time.Time              `json:"generated_at"`
	Mode        string                 `json:"mode"`
	Model       string                 `json:"model"`
	Results     []findings.CheckResult `json:"results"`
}

// New creates a Report over the run's results.
func New(version, mode, model string, results []findings.CheckResult) *Report {
	return &Report{
		Tool:        "prguard",
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Mode:        mode,
		Model:       model,
		Results:     results,
	}
}

// TotalFindings counts findings across all checks.
func (r *Report) TotalFindings() int {
	return findings.Total(r.Results)
}

// AllFindings flattens findings across checks, preserving check order.
func (r *Report) AllFindings() []findings.Finding {
	var all []findings.Finding
	for _, res := range r.Results {
		all = append(all, res.Findings...)
	}
	return all
}

// Writer renders a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "markdown":
		return &MarkdownWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "text":
		return &TextWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FileExtension returns the conventional extension for a format.
func FileExtension(format string) string {
	switch format {
	case "markdown":
		return ".md"
	case "json":
		return ".json"
	case "sarif":
		return ".sarif"
	default:
		return ".txt"
	}
}

// Render formats the report to a string after sanitizing finding text.
func Render(report *Report, format string) (string, error) {
	writer, err := GetWriter(format)
	if err != nil {
		return "", err
	}
	sanitized := *report
	sanitized.Results = SanitizeResults(report.Results)
	var sb strings.Builder
	if err := writer.Write(&sb, &sanitized); err != nil {
		return "", err
	}
	return sb.String(), nil
}
