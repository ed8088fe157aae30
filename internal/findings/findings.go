package findings

import "sort"

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AllSeverities lists the allowed severity values, most severe first.
var AllSeverities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Rank returns a numeric rank for sorting (higher = more severe).
// Unknown severities rank below info.
func Rank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the allowed severity values.
func Valid(s Severity) bool {
	return Rank(s) > 0
}

// Normalize maps unknown severity values to info.
func Normalize(s Severity) Severity {
	if Valid(s) {
		return s
	}
	return SeverityInfo
}

// MeetsThreshold returns true if severity is at or above the threshold.
// An empty or unknown threshold never matches.
func MeetsThreshold(s Severity, threshold string) bool {
	t := Severity(threshold)
	if !Valid(t) {
		return false
	}
	return Rank(s) >= Rank(t)
}

// Finding represents a single reported issue.
type Finding struct {
	Check       string   `json:"check,omitempty"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// CheckResult is the outcome of running one check against the file set.
// It is created once per check and never mutated after the runner returns it.
type CheckResult struct {
	Check         string    `json:"check"`
	FilesAnalyzed int       `json:"files_analyzed"`
	Findings      []Finding `json:"findings"`
	Summary       string    `json:"summary"`
}

// CountBySeverity tallies findings across results by severity.
func CountBySeverity(results []CheckResult) map[Severity]int {
	counts := make(map[Severity]int)
	for _, r := range results {
		for _, f := range r.Findings {
			counts[Normalize(f.Severity)]++
		}
	}
	return counts
}

// Total returns the total number of findings across results.
func Total(results []CheckResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Findings)
	}
	return n
}

// AnyMeetsThreshold reports whether any finding is at or above the threshold.
func AnyMeetsThreshold(results []CheckResult, threshold string) bool {
	for _, r := range results {
		for _, f := range r.Findings {
			if MeetsThreshold(Normalize(f.Severity), threshold) {
				return true
			}
		}
	}
	return false
}

// SortBySeverity sorts findings most severe first, then by file path, then line.
func SortBySeverity(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		ri := Rank(Normalize(fs[i].Severity))
		rj := Rank(Normalize(fs[j].Severity))
		if ri != rj {
			return ri > rj
		}
		if fs[i].File != fs[j].File {
			return fs[i].File < fs[j].File
		}
		return fs[i].Line < fs[j].Line
	})
}
