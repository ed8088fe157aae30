package aiclient

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dexterite/prguard/internal/findings"
)

// maxFallbackDescription caps the raw text carried into a synthetic
// parse-error finding.
const maxFallbackDescription = 2000

// fallbackSummary is the summary used when no JSON could be recovered.
const fallbackSummary = "AI response could not be parsed as structured JSON."

// Result is the structured outcome of one model reply.
type Result struct {
	Findings []findings.Finding `json:"findings"`
	Summary  string             `json:"summary"`
}

// responseSchema validates the shape of a model reply before it is trusted.
// Validation failures are logged, not fatal: decoding stays tolerant and
// unknown or missing fields get explicit defaults.
const responseSchema = `{
	"type": "object",
	"required": ["findings", "summary"],
	"properties": {
		"findings": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"file": {"type": "string"},
					"line": {"type": "integer"},
					"severity": {"enum": ["critical", "high", "medium", "low", "info"]},
					"category": {"type": "string"},
					"title": {"type": "string"},
					"description": {"type": "string"},
					"suggestion": {"type": "string"}
				}
			}
		},
		"summary": {"type": "string"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(responseSchema)

// Parse converts raw model text into a Result, tolerating malformed output.
// It never fails: attempts are, in order, fenced JSON, the raw trimmed text,
// the first-{ to last-} substring, and finally a synthetic parse-error
// finding wrapping the raw text.
func Parse(raw string) Result {
	text := strings.TrimSpace(raw)

	if stripped, ok := stripFences(text); ok {
		if result, ok := tryDecode(stripped); ok {
			return result
		}
	}

	if result, ok := tryDecode(text); ok {
		return result
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if result, ok := tryDecode(text[start : end+1]); ok {
			return result
		}
	}

	description := text
	if len(description) > maxFallbackDescription {
		description = description[:maxFallbackDescription]
	}
	return Result{
		Findings: []findings.Finding{{
			Severity:    findings.SeverityInfo,
			Category:    "parse-error",
			Title:       "Unparsed AI Response",
			Description: description,
		}},
		Summary: fallbackSummary,
	}
}

// stripFences removes a leading ``` fence line and, if present, a trailing
// fence-only line. The second return value reports whether the text was
// fenced at all.
func stripFences(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return text, false
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n"), true
}

func tryDecode(text string) (Result, bool) {
	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return Result{}, false
	}
	validate(text)
	for i := range result.Findings {
		result.Findings[i].Severity = findings.Normalize(result.Findings[i].Severity)
	}
	if result.Findings == nil {
		result.Findings = []findings.Finding{}
	}
	return result, true
}

// validate checks the decoded document against the response schema. Findings
// with out-of-enum severities or missing fields still pass through decoding
// with defaults; the schema report only feeds diagnostics.
func validate(text string) {
	report, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(text))
	if err != nil || report.Valid() {
		return
	}
	for _, desc := range report.Errors() {
		slog.Debug("model response deviates from schema", "issue", desc.String())
	}
}
