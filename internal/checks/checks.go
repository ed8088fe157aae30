package checks

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin
var builtinFS embed.FS

// Builtin lists the built-in check names in their run order.
var Builtin = []string{
	"code-quality",
	"sast",
	"secret-detection",
	"iac-security",
	"container-security",
}

// Config is the check-scoped configuration from a check's config.yml.
type Config struct {
	FilePatterns    []string `yaml:"file_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// Override is a user-supplied per-check override from the run config file.
type Override struct {
	Enabled           *bool    `yaml:"enabled" mapstructure:"enabled"`
	FilePatterns      []string `yaml:"file_patterns" mapstructure:"file_patterns"`
	ExcludePatterns   []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
	ExtraInstructions string   `yaml:"extra_instructions" mapstructure:"extra_instructions"`
}

// Definition is one loaded check: a system prompt plus its file-matching
// configuration. Immutable once loaded.
type Definition struct {
	Name   string
	Prompt string
	Config Config
}

// Merge layers an override onto a base config. Scalar overrides win; pattern
// lists are appended, matching the precedence of the original layered
// configuration without a generic recursive map merge.
func Merge(base Config, o Override) Config {
	merged := Config{
		FilePatterns:    append([]string(nil), base.FilePatterns...),
		ExcludePatterns: append([]string(nil), base.ExcludePatterns...),
	}
	merged.FilePatterns = append(merged.FilePatterns, o.FilePatterns...)
	merged.ExcludePatterns = append(merged.ExcludePatterns, o.ExcludePatterns...)
	return merged
}

// Resolve determines the enabled check names. selection is "all" or a
// comma-separated list; a custom checks directory contributes any
// subdirectory holding a prompt.md; user overrides can disable built-ins or
// enable extras.
func Resolve(selection, customDir string, overrides map[string]Override) []string {
	var enabled []string
	if strings.TrimSpace(selection) == "all" || strings.TrimSpace(selection) == "" {
		enabled = append(enabled, Builtin...)
	} else {
		for _, name := range strings.Split(selection, ",") {
			if name = strings.TrimSpace(name); name != "" {
				enabled = append(enabled, name)
			}
		}
	}

	if customDir != "" {
		for _, name := range discoverCustom(customDir) {
			if !contains(enabled, name) {
				enabled = append(enabled, name)
			}
		}
	}

	// Sorted so extras enabled via overrides join in a stable run order.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := overrides[name]
		if o.Enabled == nil {
			continue
		}
		if !*o.Enabled {
			enabled = remove(enabled, name)
		} else if !contains(enabled, name) {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// Load reads the prompt and configuration for each enabled check. Custom
// definitions shadow built-ins of the same name. A check without a prompt is
// skipped with a warning rather than failing the run.
func Load(enabled []string, customDir string, overrides map[string]Override) []Definition {
	defs := make([]Definition, 0, len(enabled))
	for _, name := range enabled {
		def, err := loadOne(name, customDir)
		if err != nil {
			slog.Warn("skipping check", "check", name, "error", err)
			continue
		}
		if o, ok := overrides[name]; ok {
			def.Config = Merge(def.Config, o)
			if o.ExtraInstructions != "" {
				def.Prompt += "\n\n## Additional Instructions\n\n" + o.ExtraInstructions
			}
		}
		defs = append(defs, def)
	}
	return defs
}

func loadOne(name, customDir string) (Definition, error) {
	def := Definition{Name: name}

	var prompt []byte
	var err error
	if customDir != "" {
		prompt, err = os.ReadFile(filepath.Join(customDir, name, "prompt.md"))
	}
	if customDir == "" || err != nil {
		prompt, err = builtinFS.ReadFile("builtin/" + name + "/prompt.md")
	}
	if err != nil {
		return def, fmt.Errorf("no prompt.md for check %q", name)
	}
	def.Prompt = string(prompt)

	// Built-in config first, then a custom config.yml layered on top.
	if data, err := builtinFS.ReadFile("builtin/" + name + "/config.yml"); err == nil {
		if err := yaml.Unmarshal(data, &def.Config); err != nil {
			return def, fmt.Errorf("parsing built-in config for %q: %w", name, err)
		}
	}
	if customDir != "" {
		if data, err := os.ReadFile(filepath.Join(customDir, name, "config.yml")); err == nil {
			var custom Config
			if err := yaml.Unmarshal(data, &custom); err != nil {
				return def, fmt.Errorf("parsing custom config for %q: %w", name, err)
			}
			def.Config = Merge(def.Config, Override{
				FilePatterns:    custom.FilePatterns,
				ExcludePatterns: custom.ExcludePatterns,
			})
		}
	}
	return def, nil
}

func discoverCustom(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), "prompt.md")); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// BuiltinPrompt returns the embedded prompt for a built-in check, for
// diagnostics and tests.
func BuiltinPrompt(name string) (string, error) {
	data, err := fs.ReadFile(builtinFS, "builtin/"+name+"/prompt.md")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
