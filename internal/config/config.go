package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the msgdex API configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Search       SearchConfig       `yaml:"search"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Jobs         JobsConfig         `yaml:"jobs"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	CacheEnabled *bool  `yaml:"cache_enabled"` // nil = enabled
}

// SearchConfig holds retrieval and ranking settings.
type SearchConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	VectorWeight        float64 `yaml:"vector_weight"`
	KeywordWeight       float64 `yaml:"keyword_weight"`
	Deduplicate         *bool   `yaml:"deduplicate"` // nil = enabled
	HNSWM               int     `yaml:"hnsw_m"`
	HNSWEFConstruct     int     `yaml:"hnsw_ef_construction"`
}

// SegmentationConfig holds conversation segmentation settings.
type SegmentationConfig struct {
	MinMessagesPerSegment int     `yaml:"min_messages_per_segment"`
	MaxMessagesPerSegment int     `yaml:"max_messages_per_segment"`
	MaxTimeGapMin         int     `yaml:"max_time_gap_min"`
	MaxSegmentLengthChars int     `yaml:"max_segment_length_chars"`
	TopicThreshold        float64 `yaml:"topic_similarity_threshold"`
}

// MaxTimeGap returns the time-gap trigger as a duration.
func (c SegmentationConfig) MaxTimeGap() time.Duration {
	return time.Duration(c.MaxTimeGapMin) * time.Minute
}

// JobsConfig holds processing-job settings.
type JobsConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.SimilarityThreshold <= 0 {
		c.Search.SimilarityThreshold = 2.0
	}
	if c.Search.VectorWeight <= 0 {
		c.Search.VectorWeight = 0.7
	}
	if c.Search.KeywordWeight <= 0 {
		c.Search.KeywordWeight = 0.3
	}
	if c.Search.HNSWM <= 0 {
		c.Search.HNSWM = 32
	}
	if c.Search.HNSWEFConstruct <= 0 {
		c.Search.HNSWEFConstruct = 400
	}
	if c.Segmentation.MinMessagesPerSegment <= 0 {
		c.Segmentation.MinMessagesPerSegment = 3
	}
	if c.Segmentation.MaxMessagesPerSegment <= 0 {
		c.Segmentation.MaxMessagesPerSegment = 10
	}
	if c.Segmentation.MaxTimeGapMin <= 0 {
		c.Segmentation.MaxTimeGapMin = 15
	}
	if c.Segmentation.MaxSegmentLengthChars <= 0 {
		c.Segmentation.MaxSegmentLengthChars = 2000
	}
	if c.Segmentation.TopicThreshold <= 0 {
		c.Segmentation.TopicThreshold = 0.3
	}
	if c.Jobs.MaxRetries <= 0 {
		c.Jobs.MaxRetries = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Embedding.Model != "" && c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required when embedding.model is set")
	}
	if c.Segmentation.MinMessagesPerSegment > c.Segmentation.MaxMessagesPerSegment {
		return fmt.Errorf(
			"segmentation.min_messages_per_segment %d exceeds max_messages_per_segment %d",
			c.Segmentation.MinMessagesPerSegment, c.Segmentation.MaxMessagesPerSegment,
		)
	}
	if c.Segmentation.TopicThreshold > 1 {
		return fmt.Errorf(
			"segmentation.topic_similarity_threshold must be in (0, 1], got %v",
			c.Segmentation.TopicThreshold,
		)
	}
	return nil
}

// EmbeddingCacheEnabled reports whether embedding caching is on (default true).
func (c *Config) EmbeddingCacheEnabled() bool {
	return c.Embedding.CacheEnabled == nil || *c.Embedding.CacheEnabled
}

// DeduplicateEnabled reports whether result deduplication is on (default true).
func (c *Config) DeduplicateEnabled() bool {
	return c.Search.Deduplicate == nil || *c.Search.Deduplicate
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
