package core

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the HTTP surface and internal components
// read at startup. It is assembled in three layers, lowest to highest
// priority: built-in defaults, environment variables, then functional
// options passed to NewConfig — the last writer wins.
type Config struct {
	LLMProvider       string
	CacheBackendURL   string
	TransparencyAPIKey string

	InvestigationTimeout time.Duration

	CircuitBreakerFailureThreshold float64
	CircuitBreakerCooldown         time.Duration

	AgentPoolMaxPerType int

	StreamTextChunkWords  int
	StreamAudioChunkBytes int
}

func defaultConfig() *Config {
	return &Config{
		LLMProvider:                    "primary",
		InvestigationTimeout:           120 * time.Second,
		CircuitBreakerFailureThreshold: 0.5,
		CircuitBreakerCooldown:         30 * time.Second,
		AgentPoolMaxPerType:            8,
		StreamTextChunkWords:           12,
		StreamAudioChunkBytes:          4096,
	}
}

func applyEnv(c *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLMProvider = v
	}
	if v := os.Getenv("CACHE_BACKEND_URL"); v != "" {
		c.CacheBackendURL = v
	}
	if v := os.Getenv("TRANSPARENCY_API_KEY"); v != "" {
		c.TransparencyAPIKey = v
	}
	if v, ok := envInt("INVESTIGATION_TIMEOUT_SECONDS"); ok {
		c.InvestigationTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envFloat("CIRCUIT_BREAKER_FAILURE_THRESHOLD"); ok {
		c.CircuitBreakerFailureThreshold = v
	}
	if v, ok := envInt("CIRCUIT_BREAKER_COOLDOWN_SECONDS"); ok {
		c.CircuitBreakerCooldown = time.Duration(v) * time.Second
	}
	if v, ok := envInt("AGENT_POOL_MAX_PER_TYPE"); ok {
		c.AgentPoolMaxPerType = v
	}
	if v, ok := envInt("STREAM_TEXT_CHUNK_WORDS"); ok {
		c.StreamTextChunkWords = v
	}
	if v, ok := envInt("STREAM_AUDIO_CHUNK_BYTES"); ok {
		c.StreamAudioChunkBytes = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Option mutates a Config during construction; options apply after
// defaults and environment variables, so they win any conflict.
type Option func(*Config)

func WithLLMProvider(provider string) Option {
	return func(c *Config) { c.LLMProvider = provider }
}

func WithCacheBackendURL(url string) Option {
	return func(c *Config) { c.CacheBackendURL = url }
}

func WithInvestigationTimeout(d time.Duration) Option {
	return func(c *Config) { c.InvestigationTimeout = d }
}

func WithAgentPoolMaxPerType(n int) Option {
	return func(c *Config) { c.AgentPoolMaxPerType = n }
}

// NewConfig assembles a Config: defaults, then environment variables,
// then opts in the order given.
func NewConfig(opts ...Option) *Config {
	c := defaultConfig()
	applyEnv(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DemoMode reports whether the federal source adapters should degrade to
// fixture responses because no live transparency API key is configured.
func (c *Config) DemoMode() bool {
	return c.TransparencyAPIKey == ""
}

// MemoryOnly reports whether the shared-KV tier should skip dialing Redis
// because no cache backend URL is configured.
func (c *Config) MemoryOnly() bool {
	return c.CacheBackendURL == ""
}
