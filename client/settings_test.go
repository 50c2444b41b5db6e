package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parallaxchat/parallax/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsActive(t *testing.T) {
	s := NewSettings()
	assert.False(t, s.Active(provider.Gemini))
	assert.Empty(t, s.ActiveKeys())

	s.APIKeys[provider.OpenAI] = "   "
	assert.False(t, s.Active(provider.OpenAI), "whitespace-only credential is not active")

	s.APIKeys[provider.Anthropic] = "sk-ant"
	s.APIKeys[provider.Gemini] = "goog"
	assert.Equal(t, []provider.Key{provider.Gemini, provider.Anthropic}, s.ActiveKeys())
}

func TestStoreSaveOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	st, err := LoadStore(path)
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "loading an absent file writes nothing")

	require.NoError(t, st.SetAPIKey(provider.Gemini, "goog"))
	require.NoError(t, st.SetModel(provider.Gemini, "gemini-2.5-pro"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := LoadStore(path)
	require.NoError(t, err)
	got := reloaded.Settings()
	assert.Equal(t, "goog", got.APIKeys[provider.Gemini])
	assert.Equal(t, "gemini-2.5-pro", got.SelectedModels[provider.Gemini])
	assert.Equal(t, "", got.APIKeys[provider.OpenAI])
}

func TestStoreBackfillsMissingProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"apiKeys":{"gemini":"g"},"selectedModels":{}}`), 0o600))

	st, err := LoadStore(path)
	require.NoError(t, err)
	got := st.Settings()
	for _, key := range provider.Keys() {
		_, ok := got.APIKeys[key]
		assert.True(t, ok, "missing apiKeys entry for %s", key)
		_, ok = got.SelectedModels[key]
		assert.True(t, ok, "missing selectedModels entry for %s", key)
	}
	assert.Equal(t, "g", got.APIKeys[provider.Gemini])
}

func TestStoreSettingsReturnsCopy(t *testing.T) {
	st, err := LoadStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	require.NoError(t, st.SetAPIKey(provider.OpenAI, "sk-1"))

	got := st.Settings()
	got.APIKeys[provider.OpenAI] = "mutated"
	assert.Equal(t, "sk-1", st.Settings().APIKeys[provider.OpenAI])
}

func TestLoadStoreRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadStore(path)
	assert.ErrorContains(t, err, "parse settings")
}
