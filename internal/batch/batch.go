package batch

// charsPerToken is the rough chars-per-token ratio for source code.
const charsPerToken = 3.5

// reserveFraction leaves headroom in the context window for the prompt
// scaffold and the model's response.
const reserveFraction = 0.70

// File pairs a repository-relative path with its (possibly truncated) content.
type File struct {
	Path    string
	Content string
}

// Batch is a token-budget-bounded group of files sent together in one
// model request.
type Batch struct {
	Files           []File
	EstimatedTokens int
}

// ContentReader supplies file content, capped at maxLines lines.
// *collect.Collector is the production implementation.
type ContentReader interface {
	ReadContent(path string, maxLines int) (content string, truncated bool)
}

// Planner greedily packs files into token-budgeted batches. First-fit in
// input order keeps the plan deterministic and O(n); optimal bin-packing
// buys nothing here since an over-budget batch only risks an oversized
// request, not an incorrect result.
type Planner struct {
	reader   ContentReader
	maxLines int
}

// NewPlanner creates a Planner reading at most maxLines lines per file
// (0 = default cap).
func NewPlanner(reader ContentReader, maxLines int) *Planner {
	return &Planner{reader: reader, maxLines: maxLines}
}

// EstimateTokens converts a content length to an estimated token cost.
func EstimateTokens(content string) float64 {
	return float64(len(content)) / charsPerToken
}

// Available returns the per-batch token budget for a context window.
func Available(maxContextTokens int) float64 {
	return float64(maxContextTokens) * reserveFraction
}

// Plan splits files into batches whose estimated token totals stay under the
// reserved fraction of maxContextTokens. Input order is preserved: the
// concatenation of all batches equals the input file list with no omissions
// or duplicates. A single file whose own estimate exceeds the budget is never
// split or dropped; it becomes the sole member of its batch.
func (p *Planner) Plan(files []string, maxContextTokens int) []Batch {
	available := Available(maxContextTokens)

	var batches []Batch
	var current []File
	currentTokens := 0.0

	for _, path := range files {
		content, _ := p.reader.ReadContent(path, p.maxLines)
		tokens := EstimateTokens(content)

		if currentTokens+tokens > available && len(current) > 0 {
			batches = append(batches, Batch{
				Files:           current,
				EstimatedTokens: int(currentTokens),
			})
			current = nil
			currentTokens = 0
		}

		current = append(current, File{Path: path, Content: content})
		currentTokens += tokens
	}

	if len(current) > 0 {
		batches = append(batches, Batch{
			Files:           current,
			EstimatedTokens: int(currentTokens),
		})
	}

	return batches
}
