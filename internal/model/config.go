package model

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the complete clausewatch configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Analysis     AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Classifier   ServiceConfig     `yaml:"classifier" mapstructure:"classifier"`
	Entities     ServiceConfig     `yaml:"entities" mapstructure:"entities"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Storage      StorageConfig     `yaml:"storage" mapstructure:"storage"`
}

// HTTPConfig controls fetching of URL documents
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls caching of enrichment responses
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	ClauseWorkers   int `yaml:"clause_workers" mapstructure:"clause_workers"`     // Per-document clause fan-out
	DocumentWorkers int `yaml:"document_workers" mapstructure:"document_workers"` // Batch fan-out
}

// RateLimitConfig controls per-host request rates to external services
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	Color         bool `yaml:"color" mapstructure:"color"`
}

// AnalysisConfig controls the document analyzer
type AnalysisConfig struct {
	TopicThreshold float64       `yaml:"topic_threshold" mapstructure:"topic_threshold"`
	IncludeAll     bool          `yaml:"include_all" mapstructure:"include_all"`
	EnrichTimeout  time.Duration `yaml:"enrich_timeout" mapstructure:"enrich_timeout"`
	Topics         bool          `yaml:"topics" mapstructure:"topics"`
	Entities       bool          `yaml:"entities" mapstructure:"entities"`
	PatternsFile   string        `yaml:"patterns_file,omitempty" mapstructure:"patterns_file"`
}

// ServiceConfig points at an external inference service
type ServiceConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
	APIToken string `yaml:"api_token,omitempty" mapstructure:"api_token"`
	Retries  int    `yaml:"retries" mapstructure:"retries"`
}

// LLMConfig configures the question-answering provider
type LLMConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // openai, gemini, anthropic, ollama, "" (disabled)
	Model           string `yaml:"model" mapstructure:"model"`
	APIKey          string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL         string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens       int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxContextChars int    `yaml:"max_context_chars" mapstructure:"max_context_chars"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	APIKey         string   `yaml:"api_key,omitempty" mapstructure:"api_key"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// StorageConfig configures the uploaded document store
type StorageConfig struct {
	UploadDir string `yaml:"upload_dir" mapstructure:"upload_dir"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "clausewatch/0.1 (+https://github.com/ppiankov/clausewatch)",
			MaxBodyBytes:  20_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".clausewatch-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			ClauseWorkers:   runtime.NumCPU(),
			DocumentWorkers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Output: OutputConfig{
			IncludeFooter: true,
			Color:         true,
		},
		Analysis: AnalysisConfig{
			TopicThreshold: 0.5,
			EnrichTimeout:  15 * time.Second,
		},
		Classifier: ServiceConfig{
			BaseURL: "https://api-inference.huggingface.co",
			Model:   "facebook/bart-large-mnli",
			Retries: 1,
		},
		Entities: ServiceConfig{
			BaseURL: "https://api-inference.huggingface.co",
			Model:   "dslim/bert-base-NER",
			Retries: 1,
		},
		LLM: LLMConfig{
			Timeout:         30,
			MaxTokens:       1000,
			MaxContextChars: 24_000,
		},
		Server: ServerConfig{
			Addr:           ":5000",
			MaxUploadBytes: 52_428_800, // 50MB
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			UploadDir: "uploaded_docs",
		},
	}
}

// Validate checks the configuration for values the analyzer cannot run with
func (c *Config) Validate() error {
	if c.Analysis.TopicThreshold < 0 || c.Analysis.TopicThreshold >= 1 {
		return fmt.Errorf("analysis.topic_threshold must be in [0,1), got %v", c.Analysis.TopicThreshold)
	}
	if c.Analysis.EnrichTimeout <= 0 {
		return fmt.Errorf("analysis.enrich_timeout must be positive")
	}
	if c.Concurrency.ClauseWorkers <= 0 {
		return fmt.Errorf("concurrency.clause_workers must be positive")
	}
	if c.Concurrency.DocumentWorkers <= 0 {
		return fmt.Errorf("concurrency.document_workers must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	return nil
}
