package checks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestBuiltinDefinitionsComplete(t *testing.T) {
	defs := Load(Builtin, "", nil)
	require.Len(t, defs, len(Builtin))
	for _, def := range defs {
		assert.NotEmpty(t, def.Prompt, "check %s should have a prompt", def.Name)
		assert.NotEmpty(t, def.Config.FilePatterns, "check %s should have file patterns", def.Name)
	}
}

func TestResolve_All(t *testing.T) {
	assert.Equal(t, Builtin, Resolve("all", "", nil))
	assert.Equal(t, Builtin, Resolve("", "", nil))
}

func TestResolve_CSV(t *testing.T) {
	enabled := Resolve(" sast , code-quality ", "", nil)
	assert.Equal(t, []string{"sast", "code-quality"}, enabled)
}

func TestResolve_OverrideDisables(t *testing.T) {
	overrides := map[string]Override{
		"sast": {Enabled: boolPtr(false)},
	}
	enabled := Resolve("all", "", overrides)
	assert.NotContains(t, enabled, "sast")
	assert.Contains(t, enabled, "code-quality")
}

func TestResolve_OverrideEnablesExtra(t *testing.T) {
	overrides := map[string]Override{
		"my-check": {Enabled: boolPtr(true)},
	}
	enabled := Resolve("sast", "", overrides)
	assert.Contains(t, enabled, "my-check")
}

func TestResolve_OverrideExtrasInStableOrder(t *testing.T) {
	overrides := map[string]Override{
		"zeta-check":  {Enabled: boolPtr(true)},
		"alpha-check": {Enabled: boolPtr(true)},
		"mid-check":   {Enabled: boolPtr(true)},
	}
	want := []string{"sast", "alpha-check", "mid-check", "zeta-check"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, Resolve("sast", "", overrides))
	}
}

func TestResolve_CustomDirDiscovery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "license-audit"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "license-audit", "prompt.md"), []byte("audit licenses"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "promptless"), 0o755))

	enabled := Resolve("sast", dir, nil)
	assert.Contains(t, enabled, "license-audit")
	assert.NotContains(t, enabled, "promptless")
}

func TestLoad_CustomShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sast"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sast", "prompt.md"), []byte("custom sast prompt"), 0o644))

	defs := Load([]string{"sast"}, dir, nil)
	require.Len(t, defs, 1)
	assert.Equal(t, "custom sast prompt", defs[0].Prompt)
	// built-in config.yml still applies underneath the custom prompt
	assert.NotEmpty(t, defs[0].Config.FilePatterns)
}

func TestLoad_CustomConfigLayered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sast"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sast", "prompt.md"), []byte("p"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sast", "config.yml"),
		[]byte("exclude_patterns:\n  - \"**/generated/**\"\n"), 0o644))

	defs := Load([]string{"sast"}, dir, nil)
	require.Len(t, defs, 1)
	assert.Contains(t, defs[0].Config.ExcludePatterns, "**/generated/**")
	assert.Contains(t, defs[0].Config.ExcludePatterns, "**/*_test.go", "built-in excludes survive layering")
}

func TestLoad_MissingPromptSkipsCheck(t *testing.T) {
	defs := Load([]string{"sast", "no-such-check"}, "", nil)
	require.Len(t, defs, 1)
	assert.Equal(t, "sast", defs[0].Name)
}

func TestLoad_ExtraInstructionsAppended(t *testing.T) {
	overrides := map[string]Override{
		"sast": {ExtraInstructions: "Also flag TODO comments."},
	}
	defs := Load([]string{"sast"}, "", overrides)
	require.Len(t, defs, 1)
	assert.Contains(t, defs[0].Prompt, "## Additional Instructions")
	assert.Contains(t, defs[0].Prompt, "Also flag TODO comments.")
}

func TestMerge(t *testing.T) {
	base := Config{
		FilePatterns:    []string{"**/*.go"},
		ExcludePatterns: []string{"vendor/**"},
	}
	merged := Merge(base, Override{
		FilePatterns:    []string{"**/*.py"},
		ExcludePatterns: []string{"**/dist/**"},
	})
	assert.Equal(t, []string{"**/*.go", "**/*.py"}, merged.FilePatterns)
	assert.Equal(t, []string{"vendor/**", "**/dist/**"}, merged.ExcludePatterns)
	// base is untouched
	assert.Equal(t, []string{"**/*.go"}, base.FilePatterns)
}

func TestBuiltinPrompt(t *testing.T) {
	prompt, err := BuiltinPrompt("secret-detection")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Secret Detection")

	_, err = BuiltinPrompt("nope")
	assert.Error(t, err)
}
