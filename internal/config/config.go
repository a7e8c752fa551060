package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ContextWeaver configuration, loaded in order of
// increasing precedence: hardcoded defaults, user config, project config,
// environment variables.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Rerank      RerankConfig      `yaml:"rerank" json:"rerank"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Submodules  SubmoduleConfig   `yaml:"submodules" json:"submodules"`
	Ignore      IgnoreConfig      `yaml:"ignore" json:"ignore"`
}

// PathsConfig configures which paths to include and exclude from a scan.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SearchConfig configures hybrid search fusion and result shaping.
type SearchConfig struct {
	// VectorWeight and LexicalWeight feed RRF fusion; spec defaults are
	// 0.6/0.4 (wVec/wLex). Must sum to 1.0.
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`

	// RRFConstant is k0 in the RRF formula 1/(k0+rank). Spec default: 20.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// RecallDepth is how many candidates each of vector/lexical recall
	// contributes to fusion before cutoff.
	RecallDepth int `yaml:"recall_depth" json:"recall_depth"`

	// MaxResults is the smart top-K cutoff ceiling.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// ContextBudgetChars is the character budget the packer enforces.
	ContextBudgetChars int `yaml:"context_budget_chars" json:"context_budget_chars"`
}

// EmbeddingsConfig configures the embedding provider used at index time
// and query time. The HTTP contract itself is out of scope (spec §1); this
// only carries enough to construct and call a client.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// RerankConfig configures the cross-encoder reranker HTTP contract.
type RerankConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Model    string        `yaml:"model" json:"model"`
	TopN     int           `yaml:"top_n" json:"top_n"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// PerformanceConfig configures resource usage during scanning and indexing.
type PerformanceConfig struct {
	IndexWorkers  int `yaml:"index_workers" json:"index_workers"`
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// SubmoduleConfig configures git submodule discovery during the crawl step.
type SubmoduleConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Recursive bool     `yaml:"recursive" json:"recursive"`
	Include   []string `yaml:"include" json:"include"`
	Exclude   []string `yaml:"exclude" json:"exclude"`
}

// IgnoreConfig carries extra ignore patterns beyond .gitignore, sourced
// from $IGNORE_PATTERNS (comma-separated) or config file.
type IgnoreConfig struct {
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// defaultExcludePatterns are always excluded regardless of .gitignore.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig returns a Config populated with the spec's defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Search: SearchConfig{
			VectorWeight:       0.6,
			LexicalWeight:      0.4,
			RRFConstant:        20,
			RecallDepth:        50,
			MaxResults:         20,
			ContextBudgetChars: 48000,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "",
			Endpoint:   "http://localhost:11434",
			Model:      "",
			Dimensions: 0,
			BatchSize:  32,
			Timeout:    30 * time.Second,
		},
		Rerank: RerankConfig{
			Enabled:  false,
			Endpoint: "",
			Model:    "",
			TopN:     50,
			Timeout:  10 * time.Second,
		},
		Performance: PerformanceConfig{
			IndexWorkers:  runtime.NumCPU(),
			SQLiteCacheMB: 64,
		},
		Submodules: SubmoduleConfig{
			Enabled:   false,
			Recursive: true,
		},
		Ignore: IgnoreConfig{},
	}
}

// GetUserConfigPath returns the user/global configuration path, following
// the XDG Base Directory spec: $XDG_CONFIG_HOME/contextweaver/config.yaml,
// falling back to ~/.config/contextweaver/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "contextweaver", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "contextweaver", "config.yaml")
	}
	return filepath.Join(home, ".config", "contextweaver", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user configuration file, or returns (nil, nil)
// if it doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load loads configuration for the project at dir, applying in order of
// increasing precedence: defaults, user config, project config
// (.contextweaver.yaml), environment variables (CONTEXTWEAVER_*).
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".contextweaver.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".contextweaver.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.LexicalWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.RecallDepth != 0 {
		c.Search.RecallDepth = other.Search.RecallDepth
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.ContextBudgetChars != 0 {
		c.Search.ContextBudgetChars = other.Search.ContextBudgetChars
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}

	if other.Rerank.Endpoint != "" {
		c.Rerank.Endpoint = other.Rerank.Endpoint
		c.Rerank.Enabled = true
	}
	if other.Rerank.Model != "" {
		c.Rerank.Model = other.Rerank.Model
	}
	if other.Rerank.TopN != 0 {
		c.Rerank.TopN = other.Rerank.TopN
	}
	if other.Rerank.Timeout != 0 {
		c.Rerank.Timeout = other.Rerank.Timeout
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}

	if other.Submodules.Enabled {
		c.Submodules.Enabled = other.Submodules.Enabled
	}
	if len(other.Submodules.Include) > 0 || len(other.Submodules.Exclude) > 0 || other.Submodules.Enabled {
		c.Submodules.Recursive = other.Submodules.Recursive
	}
	if len(other.Submodules.Include) > 0 {
		c.Submodules.Include = other.Submodules.Include
	}
	if len(other.Submodules.Exclude) > 0 {
		c.Submodules.Exclude = other.Submodules.Exclude
	}

	if len(other.Ignore.Patterns) > 0 {
		c.Ignore.Patterns = append(c.Ignore.Patterns, other.Ignore.Patterns...)
	}
}

// applyEnvOverrides applies CONTEXTWEAVER_* environment variable overrides,
// the highest-precedence configuration layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CONTEXTWEAVER_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("CONTEXTWEAVER_LEXICAL_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("CONTEXTWEAVER_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("CONTEXTWEAVER_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CONTEXTWEAVER_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CONTEXTWEAVER_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("CONTEXTWEAVER_RERANK_ENDPOINT"); v != "" {
		c.Rerank.Endpoint = v
		c.Rerank.Enabled = true
	}
	if v := os.Getenv("IGNORE_PATTERNS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				c.Ignore.Patterns = append(c.Ignore.Patterns, p)
			}
		}
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Search.VectorWeight < 0 || c.Search.VectorWeight > 1 {
		return fmt.Errorf("vector_weight must be between 0 and 1, got %f", c.Search.VectorWeight)
	}
	if c.Search.LexicalWeight < 0 || c.Search.LexicalWeight > 1 {
		return fmt.Errorf("lexical_weight must be between 0 and 1, got %f", c.Search.LexicalWeight)
	}

	sum := c.Search.VectorWeight + c.Search.LexicalWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("vector_weight + lexical_weight must equal 1.0, got %.2f", sum)
	}

	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.ContextBudgetChars <= 0 {
		return fmt.Errorf("context_budget_chars must be positive, got %d", c.Search.ContextBudgetChars)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true, "http": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'http', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .contextweaver.yaml/.yml file, falling back to startDir if neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".contextweaver.yaml")) ||
			fileExists(filepath.Join(currentDir, ".contextweaver.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
