package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND_URL", "")
	t.Setenv("TRANSPARENCY_API_KEY", "")

	cfg := NewConfig()

	assert.Equal(t, "primary", cfg.LLMProvider)
	assert.True(t, cfg.MemoryOnly())
	assert.True(t, cfg.DemoMode())
}

func TestNewConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "backup")
	t.Setenv("CACHE_BACKEND_URL", "localhost:6379")
	t.Setenv("TRANSPARENCY_API_KEY", "secret")
	t.Setenv("AGENT_POOL_MAX_PER_TYPE", "16")

	cfg := NewConfig()

	assert.Equal(t, "backup", cfg.LLMProvider)
	assert.False(t, cfg.MemoryOnly())
	assert.False(t, cfg.DemoMode())
	assert.Equal(t, 16, cfg.AgentPoolMaxPerType)
}

func TestNewConfig_OptionsOverrideEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "backup")

	cfg := NewConfig(WithLLMProvider("primary"))

	assert.Equal(t, "primary", cfg.LLMProvider)
}
