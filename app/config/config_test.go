package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ELEVEN_SAFE_MODE", "")
	t.Setenv("ELEVEN_LANGUAGE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ELEVEN", cfg.Assistant.Name)
	assert.Equal(t, "es-ES", cfg.Assistant.Language)
	assert.Equal(t, Personality{Humor: 50, Sarcasm: 20, Sincerity: 100, Professionalism: 80}, cfg.Personality)
	assert.True(t, cfg.Safety.SafeMode)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Len(t, cfg.LLM.Endpoints, 5)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.FolderIndex.MaxDepth)
	assert.Equal(t, 30*time.Minute, cfg.FolderIndex.Interval)
	assert.Zero(t, cfg.Conversation.IdleTimeout)
}

func TestLoadOverridesAndClamps(t *testing.T) {
	t.Setenv("ELEVEN_SAFE_MODE", "false")
	t.Setenv("ELEVEN_LANGUAGE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
assistant:
  name: JARVIS
  language: en-US
personality:
  humor: 150
  sarcasm: -5
llm:
  provider: openai
  endpoints: [gpt-4o-mini]
  backoff: fixed
  backoff_delay: 2s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "JARVIS", cfg.Assistant.Name)
	assert.Equal(t, "en-US", cfg.Assistant.Language)
	assert.Equal(t, 100, cfg.Personality.Humor)
	assert.Equal(t, 0, cfg.Personality.Sarcasm)
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.LLM.Endpoints)
	assert.Equal(t, 2*time.Second, cfg.LLM.BackoffDelay)
	assert.False(t, cfg.Safety.SafeMode)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assistant:\n  language: fr-FR\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to validate config")
}

func TestStoreSetTraitPersistsAndNotifies(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	store := NewStore(path, cfg)

	var seen []int
	store.Subscribe(func(c Config) {
		seen = append(seen, c.Personality.Sarcasm)
	})

	stored, err := store.SetTrait(TraitSarcasm, 80)
	require.NoError(t, err)
	assert.Equal(t, 80, stored)

	stored, err = store.SetTrait(TraitSarcasm, 140)
	require.NoError(t, err)
	assert.Equal(t, 100, stored)
	assert.Equal(t, []int{80, 100}, seen)

	_, err = store.SetTrait(Trait("curiosity"), 10)
	require.Error(t, err)
	assert.Equal(t, 100, store.Personality().Sarcasm)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sarcasm: 100")
	assert.NotContains(t, string(data), "secret")

	require.NoError(t, os.WriteFile(path, []byte("personality:\n  humor: 10\n"), 0644))
	require.NoError(t, store.Reload())
	assert.Equal(t, 10, store.Personality().Humor)
	assert.Equal(t, 3, len(seen))
}

func TestStoreGetReturnsCopy(t *testing.T) {
	cfg := Default()
	store := NewStore("", &cfg)

	snapshot := store.Get()
	snapshot.LLM.Endpoints[0] = "changed"

	assert.Equal(t, "gemini-2.0-flash", store.Get().LLM.Endpoints[0])
}
