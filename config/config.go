package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"newscluster/internal/cluster"
)

// StateDirName is the per-project directory holding the bbolt state file.
const StateDirName = ".newscluster"

// Config holds all configuration for the newscluster tool.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Summarize SummarizeConfig `yaml:"summarize"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig selects where articles are pulled from.
type SourceConfig struct {
	Type         string   `yaml:"type"`    // "postgres", "sqlite", "file"
	DSNEnv       string   `yaml:"dsn_env"` // Environment variable holding the DSN
	Table        string   `yaml:"table"`
	Includes     []string `yaml:"includes"` // Globs for the file source
	Excludes     []string `yaml:"excludes"`
	Delimiter    string   `yaml:"delimiter"`
	LookbackDays int      `yaml:"lookback_days"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "jina", "deepseek", "ollama", "openai-compatible", "mock"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	Cache             bool    `yaml:"cache"`
}

// ClusterConfig holds the clustering parameters.
type ClusterConfig struct {
	Method         string                 `yaml:"method"`
	Metric         string                 `yaml:"metric"`
	Range          cluster.ThresholdRange `yaml:"range"`
	Workers        int                    `yaml:"workers"` // 0 = GOMAXPROCS
	MinClusterSize int                    `yaml:"min_cluster_size"`
}

// SummarizeConfig configures the llama.cpp summarizer.
type SummarizeConfig struct {
	APIURL            string  `yaml:"api_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	SystemPrompt      string  `yaml:"system_prompt"`
	NPredict          int     `yaml:"n_predict"`
	Temperature       float64 `yaml:"temperature"`
	MaxPromptChars    int     `yaml:"max_prompt_chars"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
}

// OutputConfig holds export configuration.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:         "postgres",
			DSNEnv:       "DATABASE_URL",
			Table:        "article",
			Includes:     []string{"**/*.csv", "**/*.jsonl"},
			Excludes:     []string{"**/.newscluster/**", "**/output/**"},
			Delimiter:    ",",
			LookbackDays: 1,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         1536,
			BatchSize:         100,
			RequestsPerSecond: 5,
			MaxRetries:        5,
			TimeoutSeconds:    60,
			Cache:             true,
		},
		Cluster: ClusterConfig{
			Method:         string(cluster.MethodComplete),
			Metric:         string(cluster.MetricCosine),
			Range:          cluster.DefaultThresholdRange(),
			MinClusterSize: cluster.DefaultMinClusterSize,
		},
		Summarize: SummarizeConfig{
			APIURL:            "http://localhost:8080",
			APIKeyEnv:         "LLM_API_KEY",
			Model:             "qwen2.5-7b-instruct",
			SystemPrompt:      "Vous êtes un journaliste d'actualité congolaise.",
			NPredict:          768,
			Temperature:       0.3,
			MaxPromptChars:    2000,
			MaxRetries:        10,
			RequestsPerSecond: 1,
			TimeoutSeconds:    300,
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for newscluster.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "newscluster.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, StateDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the sections that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := c.Cluster.Options(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	switch c.Source.Type {
	case "postgres", "sqlite", "file":
	default:
		return fmt.Errorf("source: unsupported type %q", c.Source.Type)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging: unsupported format %q", c.Logging.Format)
	}
	return nil
}

// Options converts the section into modeler options.
func (c ClusterConfig) Options() (cluster.Options, error) {
	method, err := cluster.ParseMethod(c.Method)
	if err != nil {
		return cluster.Options{}, err
	}
	metric, err := cluster.ParseMetric(c.Metric)
	if err != nil {
		return cluster.Options{}, err
	}
	if method == cluster.MethodWard && metric != cluster.MetricEuclidean {
		return cluster.Options{}, fmt.Errorf("%w: ward needs euclidean", cluster.ErrIncompatibleMetric)
	}
	if err := c.Range.Validate(); err != nil {
		return cluster.Options{}, err
	}
	return cluster.Options{
		Method:         method,
		Metric:         metric,
		Range:          c.Range,
		Workers:        c.Workers,
		MinClusterSize: c.MinClusterSize,
	}, nil
}

// StateDBPath returns the path to the state database.
func StateDBPath(dir string) string {
	return filepath.Join(dir, StateDirName, "state.db")
}

// EnsureStateDir ensures the .newscluster directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, StateDirName), 0755)
}
