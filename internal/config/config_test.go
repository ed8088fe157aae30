package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prguard.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.APIBaseURL)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "all", cfg.Checks)
	assert.False(t, cfg.FullScan)
	assert.True(t, cfg.DiffOnly)
	assert.Equal(t, "low", cfg.SeverityThreshold)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, "github-summary", cfg.ShipTo)
	assert.Equal(t, 100, cfg.MaxFileSizeKB)
	assert.Equal(t, 100000, cfg.MaxContextTokens)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 300, cfg.RequestTimeoutS)
	assert.Empty(t, cfg.ExcludePatterns)
	assert.Empty(t, cfg.CheckOverrides)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")
	t.Setenv("PRGUARD_MODEL", "gpt-4o-mini")
	t.Setenv("PRGUARD_SEVERITY_THRESHOLD", "high")
	t.Setenv("PRGUARD_MAX_CONTEXT_TOKENS", "50000")
	t.Setenv("PRGUARD_EXCLUDE_PATTERNS", "**/generated/**,**/*.pb.go")
	t.Setenv("PRGUARD_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "high", cfg.SeverityThreshold)
	assert.Equal(t, 50000, cfg.MaxContextTokens)
	assert.Equal(t, []string{"**/generated/**", "**/*.pb.go"}, cfg.ExcludePatterns)
	assert.True(t, cfg.Debug)
}

func TestLoadUserFileOverridesEnv(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")
	t.Setenv("PRGUARD_MODEL", "env-model")

	path := writeConfigFile(t, `
model: file-model
severity_threshold: critical
max_retries: 2
diff_only: false
exclude_patterns:
  - "**/testdata/**"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-model", cfg.Model)
	assert.Equal(t, "critical", cfg.SeverityThreshold)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.False(t, cfg.DiffOnly)
	assert.Contains(t, cfg.ExcludePatterns, "**/testdata/**")
}

func TestLoadUserFileExplicitFalseWins(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")
	t.Setenv("PRGUARD_DEBUG", "true")

	path := writeConfigFile(t, "debug: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Debug)
}

func TestLoadFullScanDisablesDiffOnly(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")
	t.Setenv("PRGUARD_FULL_SCAN", "true")
	t.Setenv("PRGUARD_DIFF_ONLY", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.FullScan)
	assert.False(t, cfg.DiffOnly)
}

func TestLoadCheckOverrides(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")

	path := writeConfigFile(t, `
checks:
  sast:
    enabled: false
  code-quality:
    file_patterns:
      - "**/*.tmpl"
    extra_instructions: "Flag any use of reflection."
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Contains(t, cfg.CheckOverrides, "sast")
	require.NotNil(t, cfg.CheckOverrides["sast"].Enabled)
	assert.False(t, *cfg.CheckOverrides["sast"].Enabled)

	cq := cfg.CheckOverrides["code-quality"]
	assert.Equal(t, []string{"**/*.tmpl"}, cq.FilePatterns)
	assert.Equal(t, "Flag any use of reflection.", cq.ExtraInstructions)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	t.Setenv("PRGUARD_API_KEY", "test-key")

	path := writeConfigFile(t, "model: [unclosed\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestRequestTimeout(t *testing.T) {
	cfg := Config{RequestTimeoutS: 120}
	assert.Equal(t, "2m0s", cfg.RequestTimeout().String())
}

func TestMaskedBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/..."},
		{"http://localhost:8080/v1", "http://localhost:8080/..."},
		{"not-a-url", "(configured)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Config{APIBaseURL: tt.in}.MaskedBaseURL(), tt.in)
	}
}
