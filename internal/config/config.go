package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dexterite/prguard/internal/checks"
)

// envPrefix is the environment variable prefix for all settings
// (PRGUARD_API_KEY, PRGUARD_MODEL, ...).
const envPrefix = "PRGUARD"

// userConfigCandidates are checked in order when no explicit config file is
// given.
var userConfigCandidates = []string{
	"prguard.config.yml",
	"prguard.config.yaml",
	".prguard.yml",
}

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing required setting: api_key (set PRGUARD_API_KEY)")

// Config is the effective run configuration after merging defaults,
// environment variables, and the user config file.
type Config struct {
	APIKey            string   `mapstructure:"api_key"`
	APIBaseURL        string   `mapstructure:"api_base_url"`
	Model             string   `mapstructure:"model"`
	Checks            string   `mapstructure:"checks"`
	FullScan          bool     `mapstructure:"full_scan"`
	DiffOnly          bool     `mapstructure:"diff_only"`
	SeverityThreshold string   `mapstructure:"severity_threshold"`
	OutputFormat      string   `mapstructure:"output_format"`
	ShipTo            string   `mapstructure:"ship_to"`
	ShipWebhookURL    string   `mapstructure:"ship_webhook_url"`
	ShipFilePath      string   `mapstructure:"ship_file_path"`
	MaxFileSizeKB     int      `mapstructure:"max_file_size_kb"`
	MaxContextTokens  int      `mapstructure:"max_context_tokens"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RequestDelayMS    int      `mapstructure:"request_delay_ms"`
	RequestTimeoutS   int      `mapstructure:"request_timeout_s"`
	ExcludePatterns   []string `mapstructure:"exclude_patterns"`
	CustomChecksDir   string   `mapstructure:"custom_checks_dir"`
	GitHubToken       string   `mapstructure:"github_token"`
	ConfigFile        string   `mapstructure:"config_file"`
	Debug             bool     `mapstructure:"debug"`
	CacheEnabled      bool     `mapstructure:"cache_enabled"`
	CacheDir          string   `mapstructure:"cache_dir"`
	CacheTTLSeconds   int      `mapstructure:"cache_ttl_seconds"`

	// BaseRef and Before are CI hints for the changed-file strategy chain.
	BaseRef string `mapstructure:"base_ref"`
	Before  string `mapstructure:"before"`

	// CheckOverrides come from the user config file's checks section.
	CheckOverrides map[string]checks.Override `mapstructure:"-"`
}

// RequestTimeout returns the overall per-request timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS) * time.Second
}

// RequestDelay returns the fixed minimum delay between API calls.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// userFile is the typed shape of the user's prguard config file. Pointer
// fields distinguish "absent" from an explicit zero value, so false/0 set
// in the file still win over environment values.
type userFile struct {
	APIBaseURL        *string                    `yaml:"api_base_url"`
	Model             *string                    `yaml:"model"`
	ChecksSelection   *string                    `yaml:"check_selection"`
	FullScan          *bool                      `yaml:"full_scan"`
	DiffOnly          *bool                      `yaml:"diff_only"`
	SeverityThreshold *string                    `yaml:"severity_threshold"`
	OutputFormat      *string                    `yaml:"output_format"`
	ShipTo            *string                    `yaml:"ship_to"`
	ShipWebhookURL    *string                    `yaml:"ship_webhook_url"`
	ShipFilePath      *string                    `yaml:"ship_file_path"`
	MaxFileSizeKB     *int                       `yaml:"max_file_size_kb"`
	MaxContextTokens  *int                       `yaml:"max_context_tokens"`
	MaxRetries        *int                       `yaml:"max_retries"`
	RequestDelayMS    *int                       `yaml:"request_delay_ms"`
	RequestTimeoutS   *int                       `yaml:"request_timeout_s"`
	ExcludePatterns   []string                   `yaml:"exclude_patterns"`
	CustomChecksDir   *string                    `yaml:"custom_checks_dir"`
	Debug             *bool                      `yaml:"debug"`
	CacheEnabled      *bool                      `yaml:"cache_enabled"`
	CacheDir          *string                    `yaml:"cache_dir"`
	CacheTTLSeconds   *int                       `yaml:"cache_ttl_seconds"`
	Checks            map[string]checks.Override `yaml:"checks"`
}

// Load builds the effective configuration by merging, last wins:
// defaults <- environment <- user config file. CLI flag overrides are
// applied afterwards by the caller for flags the user actually passed.
func Load(explicitFile string) (Config, error) {
	v := viper.New()
	applyDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.CheckOverrides = map[string]checks.Override{}

	path := explicitFile
	if path == "" {
		path = cfg.ConfigFile
	}
	uf, err := loadUserFile(path)
	if err != nil {
		return Config{}, err
	}
	mergeUserFile(&cfg, uf)

	// Full scan turns diff-only selection off outright.
	if cfg.FullScan {
		cfg.DiffOnly = false
	}

	if cfg.APIKey == "" {
		// Return the merged config anyway; commands that do not call the
		// API (cache maintenance) ignore this error.
		return cfg, ErrMissingAPIKey
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("api_base_url", "https://api.openai.com/v1")
	v.SetDefault("model", "gpt-4o")
	v.SetDefault("checks", "all")
	v.SetDefault("full_scan", false)
	v.SetDefault("diff_only", true)
	v.SetDefault("severity_threshold", "low")
	v.SetDefault("output_format", "markdown")
	v.SetDefault("ship_to", "github-summary")
	v.SetDefault("ship_webhook_url", "")
	v.SetDefault("ship_file_path", "prguard-report")
	v.SetDefault("max_file_size_kb", 100)
	v.SetDefault("max_context_tokens", 100000)
	v.SetDefault("max_retries", 5)
	v.SetDefault("request_delay_ms", 0)
	v.SetDefault("request_timeout_s", 300)
	v.SetDefault("exclude_patterns", []string{})
	v.SetDefault("custom_checks_dir", "")
	v.SetDefault("github_token", "")
	v.SetDefault("config_file", "")
	v.SetDefault("debug", false)
	v.SetDefault("cache_enabled", false)
	v.SetDefault("cache_dir", "")
	v.SetDefault("cache_ttl_seconds", 86400)
	v.SetDefault("base_ref", "")
	v.SetDefault("before", "")
}

// loadUserFile reads the user's config file. A missing candidate file is
// not an error; an explicit path that cannot be read is.
func loadUserFile(explicit string) (userFile, error) {
	var uf userFile
	path := explicit
	if path == "" {
		for _, candidate := range userConfigCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return uf, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return uf, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return uf, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return uf, nil
}

func mergeUserFile(cfg *Config, uf userFile) {
	setString(&cfg.APIBaseURL, uf.APIBaseURL)
	setString(&cfg.Model, uf.Model)
	setString(&cfg.Checks, uf.ChecksSelection)
	setBool(&cfg.FullScan, uf.FullScan)
	setBool(&cfg.DiffOnly, uf.DiffOnly)
	setString(&cfg.SeverityThreshold, uf.SeverityThreshold)
	setString(&cfg.OutputFormat, uf.OutputFormat)
	setString(&cfg.ShipTo, uf.ShipTo)
	setString(&cfg.ShipWebhookURL, uf.ShipWebhookURL)
	setString(&cfg.ShipFilePath, uf.ShipFilePath)
	setInt(&cfg.MaxFileSizeKB, uf.MaxFileSizeKB)
	setInt(&cfg.MaxContextTokens, uf.MaxContextTokens)
	setInt(&cfg.MaxRetries, uf.MaxRetries)
	setInt(&cfg.RequestDelayMS, uf.RequestDelayMS)
	setInt(&cfg.RequestTimeoutS, uf.RequestTimeoutS)
	setString(&cfg.CustomChecksDir, uf.CustomChecksDir)
	setBool(&cfg.Debug, uf.Debug)
	setBool(&cfg.CacheEnabled, uf.CacheEnabled)
	setString(&cfg.CacheDir, uf.CacheDir)
	setInt(&cfg.CacheTTLSeconds, uf.CacheTTLSeconds)
	if len(uf.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, uf.ExcludePatterns...)
	}
	if len(uf.Checks) > 0 {
		cfg.CheckOverrides = uf.Checks
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// MaskedBaseURL returns the API base URL trimmed to scheme and host, for
// log lines that must not leak path segments.
func (c Config) MaskedBaseURL() string {
	scheme := "https"
	rest, ok := strings.CutPrefix(c.APIBaseURL, "https://")
	if !ok {
		rest, ok = strings.CutPrefix(c.APIBaseURL, "http://")
		scheme = "http"
		if !ok {
			return "(configured)"
		}
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host + "/..."
}
