package llms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faughnn/factreel/internal/config"
	"github.com/faughnn/factreel/pkg/llms"
)

func TestLoadAPIKeysFromSettingsStoresUnderConfiguredProvider(t *testing.T) {
	defer llms.APIKeys.Delete("openrouter")

	var settings config.Settings
	settings.Adapters.LLM.Provider = "openrouter"
	settings.Adapters.LLM.APIKey = "or-test-key"

	llms.LoadAPIKeysFromSettings(settings)

	assert.True(t, llms.APIKeys.Has("openrouter"))
	assert.Equal(t, "or-test-key", llms.APIKeys.Get("openrouter"))
}

func TestLoadAPIKeysFromSettingsDefaultsToGoogleWhenProviderUnset(t *testing.T) {
	defer llms.APIKeys.Delete("google")

	var settings config.Settings
	settings.Adapters.LLM.APIKey = "g-test-key"

	llms.LoadAPIKeysFromSettings(settings)

	assert.True(t, llms.APIKeys.Has("google"))
	assert.Equal(t, "g-test-key", llms.APIKeys.Get("google"))
}

func TestRegisterDefaultProvidersRegistersOnlyProvidersWithKeys(t *testing.T) {
	defer llms.APIKeys.Delete("openai")

	llms.APIKeys.Store("openai", "sk-registered")
	llms.RegisterDefaultProviders()

	client := llms.GetDefaultClient()
	provider, ok := client.GetProvider("openai")
	assert.True(t, ok)
	assert.NotNil(t, provider)
}
