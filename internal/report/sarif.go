package report

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dexterite/prguard/internal/findings"
)

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *Report) sarifLog {
	rulesMap := make(map[string]sarifRule)
	var ruleOrder []string
	var results []sarifResult

	for _, f := range report.AllFindings() {
		ruleID := generateRuleID(f)
		if _, ok := rulesMap[ruleID]; !ok {
			rulesMap[ruleID] = sarifRule{
				ID:               ruleID,
				Name:             f.Category,
				ShortDescription: sarifMessage{Text: f.Title},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(f.Severity)},
			}
			ruleOrder = append(ruleOrder, ruleID)
		}

		message := f.Description
		if message == "" {
			message = f.Title
		}
		result := sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(f.Severity),
			Message: sarifMessage{Text: message},
		}
		if f.File != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.File},
				},
			}
			if f.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line}
			}
			result.Locations = append(result.Locations, loc)
		}
		if f.Suggestion != "" {
			result.Fixes = append(result.Fixes, sarifFix{
				Description: sarifMessage{Text: f.Suggestion},
			})
		}
		results = append(results, result)
	}

	rules := make([]sarifRule, 0, len(ruleOrder))
	for _, id := range ruleOrder {
		rules = append(rules, rulesMap[id])
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           report.Tool,
						Version:        report.Version,
						InformationURI: "https://github.com/dexterite/prguard",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// severityToLevel maps a finding severity to a SARIF level.
func severityToLevel(s findings.Severity) string {
	switch findings.Normalize(s) {
	case findings.SeverityCritical, findings.SeverityHigh:
		return "error"
	case findings.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// generateRuleID creates a stable rule ID from check + category + title.
func generateRuleID(f findings.Finding) string {
	h := sha256.Sum256([]byte(f.Check + "/" + f.Category + "/" + f.Title))
	return fmt.Sprintf("prguard/%s/%x", f.Check, h[:4])
}
