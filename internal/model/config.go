package model

import "time"

// Config holds the complete casecheck configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Agent        AgentConfig        `yaml:"agent" mapstructure:"agent"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Corpus       CorpusConfig       `yaml:"corpus" mapstructure:"corpus"`
	Checklist    ChecklistConfig    `yaml:"checklist" mapstructure:"checklist"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the language-model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, ollama, openrouter, mock
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// AgentConfig bounds the extraction agent loop
type AgentConfig struct {
	MaxSteps          int `yaml:"max_steps" mapstructure:"max_steps"`
	RecentActions     int `yaml:"recent_actions" mapstructure:"recent_actions"`         // Detailed actions shown per snapshot
	ReadWindow        int `yaml:"read_window" mapstructure:"read_window"`               // Max sentences per read_document call
	SearchMaxMatches  int `yaml:"search_max_matches" mapstructure:"search_max_matches"` // Cross-document match cap
	SearchTopKDefault int `yaml:"search_top_k" mapstructure:"search_top_k"`
}

// CacheConfig configures the in-memory evidence cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL       time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// StoreConfig selects the persistent checklist store
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // badger, file
	Path    string `yaml:"path" mapstructure:"path"`
}

// CorpusConfig locates case documents
type CorpusConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// ChecklistConfig points to custom checklist definitions (empty = built-in)
type ChecklistConfig struct {
	DefinitionsFile string `yaml:"definitions_file,omitempty" mapstructure:"definitions_file"`
}

// ConcurrencyConfig configures batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits language-model requests
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     120,
			MaxTokens:   2000,
			Temperature: 0.1,
			MaxRetries:  3,
		},
		Agent: AgentConfig{
			MaxSteps:          60,
			RecentActions:     8,
			ReadWindow:        200,
			SearchMaxMatches:  20,
			SearchTopKDefault: 5,
		},
		Cache: CacheConfig{
			Enabled:         true,
			MemoryTTL:       6 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "~/.casecheck/store",
		},
		Corpus: CorpusConfig{
			Root: "./cases",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
	}
}
