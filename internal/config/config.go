// Package config provides configuration loading for traceguide.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// FileName is the project-level config file looked up at the corpus root.
const FileName = "traceguide.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete traceguide configuration.
type Config struct {
	Docs         DocsConfig    `yaml:"docs"`
	Tests        TestsConfig   `yaml:"tests"`
	Sources      SourcesConfig `yaml:"sources"`
	Exclude      ExcludeConfig `yaml:"exclude"`
	Placeholders []string      `yaml:"placeholders"`
	Output       OutputConfig  `yaml:"output"`
	Thresholds   Thresholds    `yaml:"thresholds"`
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64 `yaml:"max_file_size"`
	// Jobs bounds concurrent file reads (0 = GOMAXPROCS).
	Jobs int `yaml:"jobs"`
	// StrictIDs reports identifiers that do not follow the typed taxonomy.
	StrictIDs bool `yaml:"strict_ids"`
}

// DocsConfig selects the governance documents.
type DocsConfig struct {
	Dirs       []string `yaml:"dirs"`
	Extensions []string `yaml:"extensions"`
}

// TestsConfig selects test sources scanned leniently for test identifiers.
type TestsConfig struct {
	Dirs       []string `yaml:"dirs"`
	Extensions []string `yaml:"extensions"`
	// Annotations are the keywords of a preceding annotation line
	// ("Verifies: REQ-F-001") that binds requirements to the next test id.
	Annotations  []string `yaml:"annotations"`
	CommentsOnly bool     `yaml:"comments_only"`
}

// SourcesConfig selects implementation sources scanned for design and
// requirement references.
type SourcesConfig struct {
	Dirs         []string `yaml:"dirs"`
	Extensions   []string `yaml:"extensions"`
	CommentsOnly bool     `yaml:"comments_only"`
}

// ExcludeConfig removes guidance and template files from extraction.
type ExcludeConfig struct {
	// Globs are doublestar patterns matched against slash-separated paths
	// relative to the root.
	Globs []string `yaml:"globs"`
	// NameContains are case-insensitive file-name fragments.
	NameContains []string `yaml:"name_contains"`
	// SpecTypes are front matter specType values that mark guidance.
	SpecTypes []string `yaml:"spec_types"`
}

// OutputConfig names the snapshot and report locations, relative to the root.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Index   string `yaml:"index"`
	Graph   string `yaml:"graph"`
	Reports string `yaml:"reports"`
}

// Thresholds are minimum coverage percentages.
type Thresholds struct {
	Overall  float64 `yaml:"overall"`
	Decision float64 `yaml:"decision"`
	Scenario float64 `yaml:"scenario"`
	Test     float64 `yaml:"test"`
}

// Default returns a Config reproducing the conventional corpus layout.
func Default() *Config {
	return &Config{
		Docs: DocsConfig{
			Dirs:       []string{"02-requirements", "03-architecture", "04-design"},
			Extensions: []string{".md"},
		},
		Tests: TestsConfig{
			Dirs:        []string{"05-implementation/tests", "tests", "07-verification-validation"},
			Extensions:  []string{".cpp", ".cc", ".c", ".hpp", ".h", ".py"},
			Annotations: []string{"Verifies", "Requirements"},
		},
		Sources: SourcesConfig{
			Dirs:         []string{"."},
			Extensions:   []string{".hpp", ".h", ".cpp", ".c", ".cc", ".py", ".ts", ".js", ".go"},
			CommentsOnly: true,
		},
		Exclude: ExcludeConfig{
			Globs: []string{
				".github/**",
				"**/spec-kit-templates/**",
				"docs/**",
				"**/README*",
				"**/architecture-spec.md",
				"**/requirements-spec.md",
			},
			NameContains: []string{"template", "copilot-instructions"},
			SpecTypes:    []string{"guidance"},
		},
		Placeholders: []string{
			`\bADR-XXX\b`,
			`\bREQ-(?:F|NF)-000\b`,
			`\b(?:StR|REQ|ARC|ADR|QA|DES|TEST)(?:-[A-Z]+)*-(?:XXX|NNN)\b`,
		},
		Output: OutputConfig{
			Dir:     "build",
			Index:   "spec-index.json",
			Graph:   "traceability.json",
			Reports: "reports",
		},
		Thresholds: Thresholds{
			Overall:  80,
			Decision: 70,
			Scenario: 60,
			Test:     40,
		},
		MaxFileSize: 1_000_000,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Docs.Dirs) == 0 && len(c.Tests.Dirs) == 0 {
		return fmt.Errorf("%w: docs.dirs and tests.dirs are both empty", ErrInvalid)
	}
	for name, v := range map[string]float64{
		"thresholds.overall":  c.Thresholds.Overall,
		"thresholds.decision": c.Thresholds.Decision,
		"thresholds.scenario": c.Thresholds.Scenario,
		"thresholds.test":     c.Thresholds.Test,
	} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: %s must be between 0 and 100, got %g", ErrInvalid, name, v)
		}
	}
	for _, g := range c.Exclude.Globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("%w: exclude glob %q", ErrInvalid, g)
		}
	}
	for _, p := range c.Placeholders {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: placeholder %q: %v", ErrInvalid, p, err)
		}
	}
	if c.Output.Dir == "" || c.Output.Index == "" || c.Output.Graph == "" {
		return fmt.Errorf("%w: output.dir, output.index and output.graph are required", ErrInvalid)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must not be negative", ErrInvalid)
	}
	return nil
}

// IndexPath returns the index snapshot path under root.
func (c *Config) IndexPath(root string) string {
	return filepath.Join(root, c.Output.Dir, c.Output.Index)
}

// GraphPath returns the graph snapshot path under root.
func (c *Config) GraphPath(root string) string {
	return filepath.Join(root, c.Output.Dir, c.Output.Graph)
}

// ReportsDir returns the markdown report directory under root.
func (c *Config) ReportsDir(root string) string {
	return filepath.Join(root, c.Output.Reports)
}

// LoadFromFile loads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the configuration for root. An explicit path must exist;
// otherwise root/traceguide.yaml is used when present, and the defaults
// when not.
func Load(root, explicit string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := explicit
	if path == "" {
		candidate := filepath.Join(root, FileName)
		if _, err := os.Stat(candidate); err != nil {
			logger.Debug("no project config found, using defaults", slog.String("root", root))
			cfg := Default()
			return cfg, cfg.Validate()
		}
		path = candidate
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded project config", slog.String("path", path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// MergeThresholds applies threshold overrides keyed by category name
// (overall, decision, scenario, test). Zero is a valid override. The result
// is validated.
func (c *Config) MergeThresholds(overrides map[string]float64) error {
	for name, v := range overrides {
		switch name {
		case "overall":
			c.Thresholds.Overall = v
		case "decision":
			c.Thresholds.Decision = v
		case "scenario":
			c.Thresholds.Scenario = v
		case "test":
			c.Thresholds.Test = v
		default:
			return fmt.Errorf("%w: unknown threshold %q", ErrInvalid, name)
		}
	}
	return c.Validate()
}
