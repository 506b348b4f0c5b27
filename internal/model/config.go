package model

import "time"

// Config is the complete runtime configuration. Values are resolved
// flag > env (MASTHEAD_*) > config file (~/.masthead/config.yaml) > defaults.
type Config struct {
	Editorial EditorialConfig `yaml:"editorial" mapstructure:"editorial"`
	Cadence   CadenceConfig   `yaml:"cadence" mapstructure:"cadence"`
	Ranker    RankerConfig    `yaml:"ranker" mapstructure:"ranker"`
	Improve   ImproveConfig   `yaml:"improve" mapstructure:"improve"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
}

// EditorialConfig tunes the gate and the citation guard
type EditorialConfig struct {
	MinEvidenceSpans     int     `yaml:"min_evidence_spans" mapstructure:"min_evidence_spans"`
	MinTrustScore        float64 `yaml:"min_trust_score" mapstructure:"min_trust_score"`
	ContradictionPenalty float64 `yaml:"contradiction_penalty" mapstructure:"contradiction_penalty"`
	MinSignalConfidence  float64 `yaml:"min_signal_confidence" mapstructure:"min_signal_confidence"`
	MaxGapFailures       int     `yaml:"max_gap_failures" mapstructure:"max_gap_failures"`
	SilenceCooldownDays  int     `yaml:"silence_cooldown_days" mapstructure:"silence_cooldown_days"`
}

// SilenceCooldown returns the cooldown as a duration.
func (c EditorialConfig) SilenceCooldown() time.Duration {
	return time.Duration(c.SilenceCooldownDays) * 24 * time.Hour
}

// CadenceConfig bounds publication rate per vertical
type CadenceConfig struct {
	MaxPerWeek int `yaml:"max_per_week" mapstructure:"max_per_week"`
}

// RankerConfig tunes composite relevance scoring
type RankerConfig struct {
	LexicalWeight  float64 `yaml:"lexical_weight" mapstructure:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`
	RecencyWeight  float64 `yaml:"recency_weight" mapstructure:"recency_weight"`
	MaxResults     int     `yaml:"max_results" mapstructure:"max_results"`
}

// ImproveConfig tunes the prediction auditor and the reputation agent
type ImproveConfig struct {
	LookbackDays   int     `yaml:"lookback_days" mapstructure:"lookback_days"`
	MinProbability float64 `yaml:"min_probability" mapstructure:"min_probability"`
	MinUsages      int     `yaml:"min_usages" mapstructure:"min_usages"`
	MinMultiplier  float64 `yaml:"min_multiplier" mapstructure:"min_multiplier"`
	MaxMultiplier  float64 `yaml:"max_multiplier" mapstructure:"max_multiplier"`
}

// RateLimitConfig bounds request volume per logical actor
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig tunes the response cache layers
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir       string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	CleanupPeriod time.Duration `yaml:"cleanup_period" mapstructure:"cleanup_period"`
}

// LLMConfig selects and configures the language-model capability
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, heuristic, "" (heuristic)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // Seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig bounds a single pipeline invocation
type PipelineConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // Wall clock per invocation
	BatchWorkers int           `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// StoreConfig selects the durable store
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite file path; empty means in-memory
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Editorial: EditorialConfig{
			MinEvidenceSpans:     2,
			MinTrustScore:        0.5,
			ContradictionPenalty: 0.15,
			MinSignalConfidence:  0.35,
			MaxGapFailures:       3,
			SilenceCooldownDays:  14,
		},
		Cadence: CadenceConfig{
			MaxPerWeek: 3,
		},
		Ranker: RankerConfig{
			LexicalWeight:  0.35,
			SemanticWeight: 0.35,
			RecencyWeight:  0.30,
			MaxResults:     20,
		},
		Improve: ImproveConfig{
			LookbackDays:   30,
			MinProbability: 0.6,
			MinUsages:      3,
			MinMultiplier:  0.5,
			MaxMultiplier:  1.5,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Cache: CacheConfig{
			Enabled:       true,
			MemoryTTL:     1 * time.Hour,
			DiskTTL:       24 * time.Hour,
			CleanupPeriod: 10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 1500,
		},
		Pipeline: PipelineConfig{
			Timeout:      2 * time.Minute,
			BatchWorkers: 4,
		},
	}
}
