package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapReader serves fixed content per path.
type mapReader struct {
	contents map[string]string
}

func (m *mapReader) ReadContent(path string, _ int) (string, bool) {
	return m.contents[path], false
}

// contentForTokens returns a string whose estimated cost is exactly tokens.
func contentForTokens(tokens float64) string {
	return strings.Repeat("x", int(tokens*charsPerToken))
}

func flatten(batches []Batch) []string {
	var paths []string
	for _, b := range batches {
		for _, f := range b.Files {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

func TestPlan_WorkedExample(t *testing.T) {
	// maxContextTokens=100000 -> available=70000.
	// Costs [40000, 40000, 10000] must produce [[f1], [f2, f3]].
	reader := &mapReader{contents: map[string]string{
		"f1": contentForTokens(40000),
		"f2": contentForTokens(40000),
		"f3": contentForTokens(10000),
	}}
	p := NewPlanner(reader, 0)

	batches := p.Plan([]string{"f1", "f2", "f3"}, 100000)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"f1"}, pathsOf(batches[0]))
	assert.Equal(t, []string{"f2", "f3"}, pathsOf(batches[1]))
	assert.Equal(t, 40000, batches[0].EstimatedTokens)
	assert.Equal(t, 50000, batches[1].EstimatedTokens)
}

func TestPlan_NoLossOrderPreserved(t *testing.T) {
	contents := make(map[string]string)
	var input []string
	sizes := []float64{100, 65000, 200, 40000, 40000, 5, 90000, 1}
	for i, tokens := range sizes {
		path := string(rune('a'+i)) + ".go"
		contents[path] = contentForTokens(tokens)
		input = append(input, path)
	}
	p := NewPlanner(&mapReader{contents: contents}, 0)

	batches := p.Plan(input, 100000)
	assert.Equal(t, input, flatten(batches), "concatenated batches must reproduce the input exactly")
}

func TestPlan_OversizedFileIsolated(t *testing.T) {
	reader := &mapReader{contents: map[string]string{
		"small1.go": contentForTokens(100),
		"huge.go":   contentForTokens(200000), // alone exceeds available=70000
		"small2.go": contentForTokens(100),
	}}
	p := NewPlanner(reader, 0)

	batches := p.Plan([]string{"small1.go", "huge.go", "small2.go"}, 100000)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"small1.go"}, pathsOf(batches[0]))
	assert.Equal(t, []string{"huge.go"}, pathsOf(batches[1]))
	assert.Equal(t, []string{"small2.go"}, pathsOf(batches[2]))
	assert.Greater(t, batches[1].EstimatedTokens, 70000)
}

func TestPlan_AllFitOneBatch(t *testing.T) {
	reader := &mapReader{contents: map[string]string{
		"a.go": contentForTokens(10),
		"b.go": contentForTokens(20),
	}}
	p := NewPlanner(reader, 0)

	batches := p.Plan([]string{"a.go", "b.go"}, 100000)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a.go", "b.go"}, pathsOf(batches[0]))
}

func TestPlan_EmptyInput(t *testing.T) {
	p := NewPlanner(&mapReader{}, 0)
	assert.Empty(t, p.Plan(nil, 100000))
}

func TestEstimateTokens(t *testing.T) {
	assert.InDelta(t, 2.0, EstimateTokens("1234567"), 0.01) // 7 chars / 3.5
	assert.Zero(t, EstimateTokens(""))
}

func pathsOf(b Batch) []string {
	paths := make([]string, len(b.Files))
	for i, f := range b.Files {
		paths[i] = f.Path
	}
	return paths
}
